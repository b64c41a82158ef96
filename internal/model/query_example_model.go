package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QueryExample struct {
	Id              uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NaturalLanguage string                      `gorm:"type:text;not null"`
	ESQuery         datatypes.JSON              `gorm:"type:jsonb;not null"`
	IndexName       string                      `gorm:"type:varchar(32);not null;index"`
	Description     string                      `gorm:"type:text"`
	Tags            datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Embedding       *pgvector.Vector            `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-3-small@768
	CreatedAt       time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt              `gorm:"index"`
}

func (QueryExample) TableName() string {
	return "query_examples"
}
