package model

import (
	"time"

	"gorm.io/gorm"
)

// ChatMessage rows are append-only; a chat is removed by soft-deleting its rows.
type ChatMessage struct {
	Id              uint           `gorm:"primaryKey;autoIncrement"`
	ChatSessionId   uint           `gorm:"not null;index:idx_chat_messages_session_created,priority:1"`
	ChatSession     *ChatSession   `gorm:"foreignKey:ChatSessionId;constraint:OnDelete:CASCADE"`
	Query           string         `gorm:"type:text;not null"`
	Response        string         `gorm:"type:text;not null"`
	ParentMessageId *uint          `gorm:"index"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index:idx_chat_messages_session_created,priority:2"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
