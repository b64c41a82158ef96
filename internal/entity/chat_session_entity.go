package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one conversation with the assistant.
type ChatSession struct {
	Id     uint
	UserId uuid.UUID
	Title  string
	// Rolling "Q: ... / A: ..." summary of the latest exchanges.
	Summary       string
	MessageCount  int
	LastMessageId *uint
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
