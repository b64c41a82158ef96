package audit

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusProcessing                  Status = "processing"
	StatusSuccess                     Status = "success"
	StatusFailed                      Status = "failed"
	StatusMalicious                   Status = "malicious"
	StatusQueryGenerationSuccess      Status = "query_generation_success"
	StatusQueryGenerationFailed       Status = "query_generation_failed"
	StatusQueryExecutionSuccess       Status = "query_execution_success"
	StatusQueryExecutionFailed        Status = "query_execution_failed"
	StatusQuerySummarizationSuccess   Status = "query_summarization_success"
	StatusQuerySummarizationFailed    Status = "query_summarization_failed"
	StatusResponseSanitizationSuccess Status = "response_sanitization_success"
)

// IsSecurityEvent reports whether records with this status are forwarded as alerts.
func (s Status) IsSecurityEvent() bool {
	return s == StatusMalicious || s == StatusResponseSanitizationSuccess
}

// Record is the per-request audit trail. A pipeline run owns exactly one
// Record and mutates it as each stage completes.
type Record struct {
	Id               uint
	UserQuery        string
	UserId           string
	ChatId           *uint
	ParentMessageId  *uint
	Status           Status
	MaliciousContent string
	ErrorMessage     string

	GeneratorLatency  time.Duration
	ExecutorLatency   time.Duration
	SummarizerLatency time.Duration
	TotalLatency      time.Duration

	GeneratedESQuery    string
	GeneratedESResponse json.RawMessage
	ResponseSummary     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewRecord(userQuery, userId string, chatId, parentMessageId *uint) *Record {
	now := time.Now()
	return &Record{
		UserQuery:       userQuery,
		UserId:          userId,
		ChatId:          chatId,
		ParentMessageId: parentMessageId,
		Status:          StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SetStatus updates the status and touches UpdatedAt.
func (r *Record) SetStatus(s Status) {
	r.Status = s
	r.UpdatedAt = time.Now()
}

// Fail marks the record failed at stage status s with the given message.
func (r *Record) Fail(s Status, message string) {
	r.ErrorMessage = message
	r.SetStatus(s)
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (r *Record) Snapshot() *Record {
	cp := *r
	if r.ChatId != nil {
		v := *r.ChatId
		cp.ChatId = &v
	}
	if r.ParentMessageId != nil {
		v := *r.ParentMessageId
		cp.ParentMessageId = &v
	}
	if r.GeneratedESResponse != nil {
		cp.GeneratedESResponse = append(json.RawMessage(nil), r.GeneratedESResponse...)
	}
	return &cp
}

// Derive starts a separate record for a side-channel event (sanitization,
// pre-validation rejection) that shares the request identity.
func (r *Record) Derive(s Status) *Record {
	d := NewRecord(r.UserQuery, r.UserId, r.ChatId, r.ParentMessageId)
	d.Status = s
	return d.Snapshot()
}
