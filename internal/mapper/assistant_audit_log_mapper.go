package mapper

import (
	"time"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/model"
	"ai-finance-assistant-be/pkg/audit"

	"gorm.io/datatypes"
)

type AssistantAuditLogMapper struct{}

func NewAssistantAuditLogMapper() *AssistantAuditLogMapper {
	return &AssistantAuditLogMapper{}
}

// FromRecord copies a pipeline audit record into the persisted entity.
func (m *AssistantAuditLogMapper) FromRecord(rec *audit.Record) *entity.AssistantAuditLog {
	if rec == nil {
		return nil
	}
	return &entity.AssistantAuditLog{
		Id:                  rec.Id,
		UserQuery:           rec.UserQuery,
		UserId:              rec.UserId,
		ChatId:              rec.ChatId,
		ParentMessageId:     rec.ParentMessageId,
		Status:              string(rec.Status),
		MaliciousContent:    rec.MaliciousContent,
		ErrorMessage:        rec.ErrorMessage,
		GeneratorLatency:    rec.GeneratorLatency,
		ExecutorLatency:     rec.ExecutorLatency,
		SummarizerLatency:   rec.SummarizerLatency,
		TotalLatency:        rec.TotalLatency,
		GeneratedESQuery:    rec.GeneratedESQuery,
		GeneratedESResponse: rec.GeneratedESResponse,
		ResponseSummary:     rec.ResponseSummary,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func (m *AssistantAuditLogMapper) ToModel(e *entity.AssistantAuditLog) *model.AssistantAuditLog {
	if e == nil {
		return nil
	}

	var response datatypes.JSON
	if len(e.GeneratedESResponse) > 0 {
		response = datatypes.JSON(e.GeneratedESResponse)
	}

	return &model.AssistantAuditLog{
		Id:                  e.Id,
		UserQuery:           e.UserQuery,
		UserId:              e.UserId,
		ChatId:              e.ChatId,
		ParentMessageId:     e.ParentMessageId,
		Status:              e.Status,
		MaliciousContent:    e.MaliciousContent,
		ErrorMessage:        e.ErrorMessage,
		GeneratorLatencyMs:  e.GeneratorLatency.Milliseconds(),
		ExecutorLatencyMs:   e.ExecutorLatency.Milliseconds(),
		SummarizerLatencyMs: e.SummarizerLatency.Milliseconds(),
		TotalLatencyMs:      e.TotalLatency.Milliseconds(),
		GeneratedESQuery:    e.GeneratedESQuery,
		GeneratedESResponse: response,
		ResponseSummary:     e.ResponseSummary,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func (m *AssistantAuditLogMapper) ToEntity(e *model.AssistantAuditLog) *entity.AssistantAuditLog {
	if e == nil {
		return nil
	}
	return &entity.AssistantAuditLog{
		Id:                  e.Id,
		UserQuery:           e.UserQuery,
		UserId:              e.UserId,
		ChatId:              e.ChatId,
		ParentMessageId:     e.ParentMessageId,
		Status:              e.Status,
		MaliciousContent:    e.MaliciousContent,
		ErrorMessage:        e.ErrorMessage,
		GeneratorLatency:    time.Duration(e.GeneratorLatencyMs) * time.Millisecond,
		ExecutorLatency:     time.Duration(e.ExecutorLatencyMs) * time.Millisecond,
		SummarizerLatency:   time.Duration(e.SummarizerLatencyMs) * time.Millisecond,
		TotalLatency:        time.Duration(e.TotalLatencyMs) * time.Millisecond,
		GeneratedESQuery:    e.GeneratedESQuery,
		GeneratedESResponse: []byte(e.GeneratedESResponse),
		ResponseSummary:     e.ResponseSummary,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}
