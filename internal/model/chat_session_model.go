package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id            uint           `gorm:"primaryKey;autoIncrement"`
	UserId        uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_sessions_user_created,priority:1"`
	Title         string         `gorm:"type:varchar(255);not null"`
	Summary       string         `gorm:"type:text"`
	MessageCount  int            `gorm:"not null;default:0"`
	LastMessageId *uint          `gorm:"column:last_message_id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index:idx_chat_sessions_user_created,priority:2,sort:desc"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
