package contract

import (
	"context"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/repository/specification"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	DeleteByChatSessionId(ctx context.Context, chatSessionId uint) error
	// FindRecent returns the last limit messages of a chat, oldest first.
	FindRecent(ctx context.Context, chatSessionId uint, limit int) ([]*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
}
