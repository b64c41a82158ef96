package mapper

import (
	"encoding/json"
	"time"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QueryExampleMapper struct{}

func NewQueryExampleMapper() *QueryExampleMapper {
	return &QueryExampleMapper{}
}

func (m *QueryExampleMapper) ToEntity(e *model.QueryExample) *entity.QueryExample {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var vec []float32
	if e.Embedding != nil {
		vec = e.Embedding.Slice()
	}

	return &entity.QueryExample{
		Id:              e.Id,
		NaturalLanguage: e.NaturalLanguage,
		ESQuery:         json.RawMessage(e.ESQuery),
		IndexName:       e.IndexName,
		Description:     e.Description,
		Tags:            []string(e.Tags),
		Embedding:       vec,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
		IsDeleted:       e.DeletedAt.Valid,
	}
}

func (m *QueryExampleMapper) ToModel(e *entity.QueryExample) *model.QueryExample {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	var vec *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		vec = &v
	}

	return &model.QueryExample{
		Id:              e.Id,
		NaturalLanguage: e.NaturalLanguage,
		ESQuery:         datatypes.JSON(e.ESQuery),
		IndexName:       e.IndexName,
		Description:     e.Description,
		Tags:            datatypes.JSONSlice[string](e.Tags),
		Embedding:       vec,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
	}
}

func (m *QueryExampleMapper) ToEntities(examples []*model.QueryExample) []*entity.QueryExample {
	entities := make([]*entity.QueryExample, len(examples))
	for i, e := range examples {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
