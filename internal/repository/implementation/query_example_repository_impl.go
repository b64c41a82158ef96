package implementation

import (
	"context"
	"errors"
	"time"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/mapper"
	"ai-finance-assistant-be/internal/model"
	"ai-finance-assistant-be/internal/repository/contract"
	"ai-finance-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QueryExampleRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QueryExampleMapper
}

func NewQueryExampleRepository(db *gorm.DB) contract.QueryExampleRepository {
	return &QueryExampleRepositoryImpl{
		db:     db,
		mapper: mapper.NewQueryExampleMapper(),
	}
}

func (r *QueryExampleRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *QueryExampleRepositoryImpl) Create(ctx context.Context, example *entity.QueryExample) error {
	m := r.mapper.ToModel(example)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*example = *r.mapper.ToEntity(m)
	return nil
}

func (r *QueryExampleRepositoryImpl) Update(ctx context.Context, example *entity.QueryExample) error {
	m := r.mapper.ToModel(example)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*example = *r.mapper.ToEntity(m)
	return nil
}

func (r *QueryExampleRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.QueryExample{}).
		Where("id = ?", id).
		Update("embedding", pgvector.NewVector(embedding)).Error
}

func (r *QueryExampleRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.QueryExample{}, "id = ?", id).Error
}

func (r *QueryExampleRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.QueryExample, error) {
	var m model.QueryExample
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *QueryExampleRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QueryExample, error) {
	var models []*model.QueryExample
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *QueryExampleRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.QueryExample{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SearchSimilar ranks embedded examples by pgvector cosine distance (<=>).
// similarity_score is the raw distance; callers convert it.
func (r *QueryExampleRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredQueryExample, error) {
	if limit <= 0 {
		limit = 3
	}

	type result struct {
		Id              uuid.UUID
		NaturalLanguage string
		EsQuery         datatypes.JSON
		IndexName       string
		Description     string
		Tags            datatypes.JSONSlice[string]
		CreatedAt       time.Time
		SimilarityScore float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("query_examples").
		Select("id, natural_language, es_query, index_name, description, tags, created_at, (embedding <=> ?) AS similarity_score", queryVector).
		Where("deleted_at IS NULL").
		Where("embedding IS NOT NULL").
		Order("similarity_score ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredQueryExample, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredQueryExample{
			Example: &entity.QueryExample{
				Id:              res.Id,
				NaturalLanguage: res.NaturalLanguage,
				ESQuery:         []byte(res.EsQuery),
				IndexName:       res.IndexName,
				Description:     res.Description,
				Tags:            []string(res.Tags),
				CreatedAt:       res.CreatedAt,
			},
			Distance: res.SimilarityScore,
		}
	}
	return scored, nil
}
