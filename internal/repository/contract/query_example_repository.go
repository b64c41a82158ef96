package contract

import (
	"context"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredQueryExample carries the raw cosine distance (0 = identical).
type ScoredQueryExample struct {
	Example  *entity.QueryExample
	Distance float64
}

type QueryExampleRepository interface {
	Create(ctx context.Context, example *entity.QueryExample) error
	Update(ctx context.Context, example *entity.QueryExample) error
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.QueryExample, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QueryExample, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar returns the limit nearest embedded examples, ascending distance.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*ScoredQueryExample, error)
}
