package service

import (
	"context"

	"ai-finance-assistant-be/internal/repository/unitofwork"
	"ai-finance-assistant-be/pkg/rag/retriever"
)

// postgresExampleStore serves retrieval from the pgvector column.
type postgresExampleStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewPostgresExampleStore(uowFactory unitofwork.RepositoryFactory) retriever.ExampleStore {
	return &postgresExampleStore{uowFactory: uowFactory}
}

func (s *postgresExampleStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int) ([]retriever.ScoredExample, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.QueryExampleRepository().SearchSimilar(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, err
	}

	out := make([]retriever.ScoredExample, 0, len(rows))
	for _, r := range rows {
		ex := r.Example
		out = append(out, retriever.ScoredExample{
			Example: retriever.Example{
				Id:              ex.Id.String(),
				NaturalLanguage: ex.NaturalLanguage,
				ESQuery:         ex.ESQuery,
				IndexName:       ex.IndexName,
				Description:     ex.Description,
				Tags:            ex.Tags,
				CreatedAt:       ex.CreatedAt,
			},
			Distance: r.Distance,
		})
	}
	return out, nil
}
