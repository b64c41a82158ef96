package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/pkg/rag/retriever"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const exampleCollection = "query_examples"

var errNoEmbedder = errors.New("example store only accepts precomputed embeddings")

// ExampleStore keeps query examples in an in-process chromem-go collection.
// Used for local runs and tests when Postgres/pgvector is not available.
type ExampleStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func NewExampleStore() (*ExampleStore, error) {
	db := chromem.NewDB()
	noEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbedder
	}

	col, err := db.GetOrCreateCollection(exampleCollection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ExampleStore{db: db, collection: col}, nil
}

// Upsert adds or replaces an example. Examples without an embedding are skipped.
func (s *ExampleStore) Upsert(ctx context.Context, ex *entity.QueryExample) error {
	if !ex.HasEmbedding() {
		return nil
	}
	return s.collection.AddDocument(ctx, chromem.Document{
		ID:        ex.Id.String(),
		Content:   ex.NaturalLanguage,
		Embedding: ex.Embedding,
		Metadata: map[string]string{
			"index_name":  ex.IndexName,
			"description": ex.Description,
			"es_query":    string(ex.ESQuery),
			"tags":        strings.Join(ex.Tags, ","),
			"created_at":  ex.CreatedAt.Format(time.RFC3339),
		},
	})
}

func (s *ExampleStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.collection.Delete(ctx, nil, nil, id.String())
}

func (s *ExampleStore) Count() int {
	return s.collection.Count()
}

// SearchSimilar implements retriever.ExampleStore.
func (s *ExampleStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int) ([]retriever.ScoredExample, error) {
	count := s.collection.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	if topK > count {
		topK = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]retriever.ScoredExample, len(results))
	for i, r := range results {
		createdAt, _ := time.Parse(time.RFC3339, r.Metadata["created_at"])
		var tags []string
		if t := r.Metadata["tags"]; t != "" {
			tags = strings.Split(t, ",")
		}
		out[i] = retriever.ScoredExample{
			Example: retriever.Example{
				Id:              r.ID,
				NaturalLanguage: r.Content,
				ESQuery:         []byte(r.Metadata["es_query"]),
				IndexName:       r.Metadata["index_name"],
				Description:     r.Metadata["description"],
				Tags:            tags,
				CreatedAt:       createdAt,
			},
			Distance: 1 - float64(r.Similarity),
		}
	}
	return out, nil
}
