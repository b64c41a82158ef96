package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AssistantRequest struct {
	Query    string `json:"query" validate:"required,max=4000"`
	ChatId   *uint  `json:"chat_id,omitempty"`
	ParentId *uint  `json:"parent_id,omitempty"`
}

type ChatSessionResponse struct {
	Id           uint       `json:"id"`
	Title        string     `json:"title"`
	MessageCount int        `json:"message_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type ChatMessageResponse struct {
	Id              uint      `json:"id"`
	Query           string    `json:"query"`
	Response        string    `json:"response"`
	ParentMessageId *uint     `json:"parent_message_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateQueryExampleRequest struct {
	NaturalLanguage string          `json:"natural_language" yaml:"natural_language" validate:"required"`
	ESQuery         json.RawMessage `json:"es_query" yaml:"-" validate:"required"`
	IndexName       string          `json:"index_name" yaml:"index_name" validate:"required"`
	Description     string          `json:"description" yaml:"description"`
	Tags            []string        `json:"tags" yaml:"tags"`
}

type QueryExampleResponse struct {
	Id              uuid.UUID       `json:"id"`
	NaturalLanguage string          `json:"natural_language"`
	ESQuery         json.RawMessage `json:"es_query"`
	IndexName       string          `json:"index_name"`
	Description     string          `json:"description"`
	Tags            []string        `json:"tags"`
	Embedded        bool            `json:"embedded"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ListQueryExamplesResponse struct {
	Items []*QueryExampleResponse `json:"items"`
	Total int64                   `json:"total"`
}

type PublishEmbedExampleMessage struct {
	ExampleId uuid.UUID `json:"example_id"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Elasticsearch string `json:"elasticsearch"`
	Database      string `json:"database"`
}
