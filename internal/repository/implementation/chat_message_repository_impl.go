package implementation

import (
	"context"
	"slices"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/mapper"
	"ai-finance-assistant-be/internal/model"
	"ai-finance-assistant-be/internal/repository/contract"
	"ai-finance-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	message.Id = m.Id
	message.CreatedAt = m.CreatedAt
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteByChatSessionId(ctx context.Context, chatSessionId uint) error {
	return r.db.WithContext(ctx).
		Where("chat_session_id = ?", chatSessionId).
		Delete(&model.ChatMessage{}).Error
}

func (r *ChatMessageRepositoryImpl) FindRecent(ctx context.Context, chatSessionId uint, limit int) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", chatSessionId).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(models)
	return r.mapper.ChatMessagesToEntities(models), nil
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatMessagesToEntities(models), nil
}
