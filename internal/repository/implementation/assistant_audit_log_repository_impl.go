package implementation

import (
	"context"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/mapper"
	"ai-finance-assistant-be/internal/model"
	"ai-finance-assistant-be/internal/repository/contract"
	"ai-finance-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AssistantAuditLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssistantAuditLogMapper
}

func NewAssistantAuditLogRepository(db *gorm.DB) contract.AssistantAuditLogRepository {
	return &AssistantAuditLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssistantAuditLogMapper(),
	}
}

func (r *AssistantAuditLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AssistantAuditLogRepositoryImpl) Create(ctx context.Context, log *entity.AssistantAuditLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	log.Id = m.Id
	return nil
}

func (r *AssistantAuditLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AssistantAuditLog, error) {
	var models []*model.AssistantAuditLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.AssistantAuditLog, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *AssistantAuditLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.AssistantAuditLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
