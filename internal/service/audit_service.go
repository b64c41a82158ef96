package service

import (
	"context"

	"ai-finance-assistant-be/internal/mapper"
	"ai-finance-assistant-be/internal/repository/unitofwork"
	"ai-finance-assistant-be/pkg/audit"
)

// auditStore persists audit records through the repository layer.
type auditStore struct {
	uowFactory unitofwork.RepositoryFactory
	mapper     *mapper.AssistantAuditLogMapper
}

func NewAuditStore(uowFactory unitofwork.RepositoryFactory) audit.Store {
	return &auditStore{
		uowFactory: uowFactory,
		mapper:     mapper.NewAssistantAuditLogMapper(),
	}
}

func (s *auditStore) Save(ctx context.Context, rec *audit.Record) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row := s.mapper.FromRecord(rec)
	if err := uow.AssistantAuditLogRepository().Create(ctx, row); err != nil {
		return err
	}
	rec.Id = row.Id
	return nil
}
