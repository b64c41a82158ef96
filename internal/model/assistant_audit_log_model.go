package model

import (
	"time"

	"gorm.io/datatypes"
)

type AssistantAuditLog struct {
	Id                  uint           `gorm:"primaryKey;autoIncrement"`
	UserQuery           string         `gorm:"type:text;not null"`
	UserId              string         `gorm:"type:varchar(64);index"`
	ChatId              *uint          `gorm:"index"`
	ParentMessageId     *uint          `gorm:"index"`
	Status              string         `gorm:"type:varchar(64);not null;index"`
	MaliciousContent    string         `gorm:"type:text"`
	ErrorMessage        string         `gorm:"type:text"`
	GeneratorLatencyMs  int64          `gorm:"not null;default:0"`
	ExecutorLatencyMs   int64          `gorm:"not null;default:0"`
	SummarizerLatencyMs int64          `gorm:"not null;default:0"`
	TotalLatencyMs      int64          `gorm:"not null;default:0"`
	GeneratedESQuery    string         `gorm:"type:text"`
	GeneratedESResponse datatypes.JSON `gorm:"type:jsonb"`
	ResponseSummary     string         `gorm:"type:text"`
	CreatedAt           time.Time      `gorm:"index"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
}

func (AssistantAuditLog) TableName() string {
	return "assistant_audit_logs"
}
