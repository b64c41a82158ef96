package contract

import (
	"context"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/repository/specification"
)

type AssistantAuditLogRepository interface {
	Create(ctx context.Context, log *entity.AssistantAuditLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AssistantAuditLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
