package contract

import (
	"context"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/repository/specification"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	// RecordExchange stores the refreshed summary and bumps the message counter.
	RecordExchange(ctx context.Context, id uint, summary string, lastMessageId uint) error
	Delete(ctx context.Context, id uint) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
