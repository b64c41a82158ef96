package entity

import (
	"encoding/json"
	"time"
)

type AssistantAuditLog struct {
	Id                  uint
	UserQuery           string
	UserId              string
	ChatId              *uint
	ParentMessageId     *uint
	Status              string
	MaliciousContent    string
	ErrorMessage        string
	GeneratorLatency    time.Duration
	ExecutorLatency     time.Duration
	SummarizerLatency   time.Duration
	TotalLatency        time.Duration
	GeneratedESQuery    string
	GeneratedESResponse json.RawMessage
	ResponseSummary     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
