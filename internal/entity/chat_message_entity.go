package entity

import (
	"time"
)

// ChatMessage is one question/answer exchange. Response holds the sanitized
// text that was streamed to the client, without the sentinel.
type ChatMessage struct {
	Id              uint
	ChatSessionId   uint
	Query           string
	Response        string
	ParentMessageId *uint
	CreatedAt       time.Time
}
