package mapper

import (
	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	e := &entity.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Title:         s.Title,
		Summary:       s.Summary,
		MessageCount:  s.MessageCount,
		LastMessageId: s.LastMessageId,
		CreatedAt:     s.CreatedAt,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		e.UpdatedAt = &t
	}
	return e
}

// ChatSessionToModel leaves UpdatedAt to gorm's autoUpdateTime.
func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}
	return &model.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Title:         s.Title,
		Summary:       s.Summary,
		MessageCount:  s.MessageCount,
		LastMessageId: s.LastMessageId,
		CreatedAt:     s.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:              msg.Id,
		ChatSessionId:   msg.ChatSessionId,
		Query:           msg.Query,
		Response:        msg.Response,
		ParentMessageId: msg.ParentMessageId,
		CreatedAt:       msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:              msg.Id,
		ChatSessionId:   msg.ChatSessionId,
		Query:           msg.Query,
		Response:        msg.Response,
		ParentMessageId: msg.ParentMessageId,
		CreatedAt:       msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(msgs []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(msgs))
	for i, msg := range msgs {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}
