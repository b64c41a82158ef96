package unitofwork

import (
	"context"

	"ai-finance-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	QueryExampleRepository() contract.QueryExampleRepository
	AssistantAuditLogRepository() contract.AssistantAuditLogRepository
}
