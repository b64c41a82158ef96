package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QueryExample is a historical question paired with the Elasticsearch
// request that answered it. Embedding is nil until the embedding worker ran.
type QueryExample struct {
	Id              uuid.UUID
	NaturalLanguage string
	ESQuery         json.RawMessage
	IndexName       string
	Description     string
	Tags            []string
	Embedding       []float32
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
	IsDeleted       bool
}

func (e *QueryExample) HasEmbedding() bool {
	return len(e.Embedding) > 0
}
