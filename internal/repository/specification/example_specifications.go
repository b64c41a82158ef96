package specification

import (
	"gorm.io/gorm"
)

type ByIndexName struct {
	IndexName string
}

func (s ByIndexName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("index_name = ?", s.IndexName)
}

// WithEmbedding keeps only examples the embedding worker has processed.
type WithEmbedding struct{}

func (s WithEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NOT NULL")
}

// MissingEmbedding selects examples still waiting for the embedding worker.
type MissingEmbedding struct{}

func (s MissingEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
