package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/embedding"
	"ai-finance-assistant-be/pkg/metrics"
)

const (
	examplesHeading     = "### SIMILAR QUERY EXAMPLES"
	examplesInstruction = "Use the examples above as a reference for index choice, field names and query structure. Adapt them to the current question instead of copying them verbatim."
	moduleName          = "RETRIEVER"
)

// Example is a historical question paired with the query that answered it.
type Example struct {
	Id              string          `json:"id"`
	NaturalLanguage string          `json:"natural_language"`
	ESQuery         json.RawMessage `json:"es_query"`
	IndexName       string          `json:"index_name"`
	Description     string          `json:"description"`
	Tags            []string        `json:"tags"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ScoredExample carries the raw cosine distance returned by the store.
type ScoredExample struct {
	Example
	Distance float64 `json:"similarity_score"`
}

// Similarity converts the cosine distance into a [0,1] similarity.
func (s ScoredExample) Similarity() float64 {
	sim := 1 - s.Distance
	if sim < 0 {
		return 0
	}
	return sim
}

// ExampleStore returns the topK nearest examples ordered by ascending distance.
// Records without an embedding are never returned.
type ExampleStore interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int) ([]ScoredExample, error)
}

type Config struct {
	TopK          int
	MinSimilarity float64
}

func DefaultConfig() Config {
	return Config{TopK: 3, MinSimilarity: 0.5}
}

type Retriever struct {
	embedder embedding.EmbeddingProvider
	store    ExampleStore
	config   Config
	logger   logger.ILogger
}

func NewRetriever(embedder embedding.EmbeddingProvider, store ExampleStore, config Config, log logger.ILogger) *Retriever {
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		config:   config,
		logger:   log,
	}
}

// FetchExamples renders the examples similar to userQuery as a prompt
// fragment. Any failure yields "".
func (r *Retriever) FetchExamples(ctx context.Context, userQuery string) string {
	examples, err := r.Search(ctx, userQuery)
	if err != nil {
		r.logger.Warn(moduleName, "Example retrieval failed, continuing without examples", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	metrics.RetrievedExamples.Observe(float64(len(examples)))
	return Render(examples)
}

// Search returns the examples that pass the similarity threshold, most similar first.
func (r *Retriever) Search(ctx context.Context, userQuery string) ([]ScoredExample, error) {
	if r.embedder == nil || r.store == nil {
		return nil, nil
	}

	embeddingRes, err := r.embedder.Generate(ctx, userQuery, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if embeddingRes == nil || len(embeddingRes.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding generation returned no vector")
	}

	rows, err := r.store.SearchSimilar(ctx, embeddingRes.Embedding.Values, r.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	kept := make([]ScoredExample, 0, len(rows))
	for _, row := range rows {
		if row.Similarity() < r.config.MinSimilarity {
			continue
		}
		kept = append(kept, row)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity() > kept[j].Similarity()
	})

	r.logger.Debug(moduleName, "Similar examples retrieved", map[string]interface{}{
		"candidates": len(rows),
		"kept":       len(kept),
	})
	return kept, nil
}

// Render formats examples as the prompt fragment. No examples renders "".
func Render(examples []ScoredExample) string {
	if len(examples) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(examplesHeading)
	b.WriteString("\n\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "Example %d (similarity: %.2f)\n", i+1, ex.Similarity())
		fmt.Fprintf(&b, "Question: %s\n", ex.NaturalLanguage)
		fmt.Fprintf(&b, "Index: %s\n", ex.IndexName)
		if ex.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", ex.Description)
		}
		b.WriteString("Query: ")
		b.WriteString(compactJSON(ex.ESQuery))
		b.WriteString("\n\n")
	}
	b.WriteString(examplesInstruction)
	b.WriteString("\n\n")
	return b.String()
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if err := enc.Encode(v); err != nil {
		return string(raw)
	}
	return strings.TrimSpace(buf.String())
}
