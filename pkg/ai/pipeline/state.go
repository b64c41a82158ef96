package pipeline

import (
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/rag/prompt"
)

// Session is the live context of one user request.
type Session struct {
	UserQuery       string
	UserId          string
	ChatId          *uint
	ParentMessageId *uint
	// Oldest first, at most five turns.
	RecentTurns []prompt.Turn
	// Rolling conversation summary handed to the summarizer.
	Summary string
}

// State is threaded through the graph nodes. Nodes return a new State
// instead of editing the previous one; only Log is shared and mutated.
type State struct {
	Messages    []llm.Message
	Summary     string
	UserQuery   string
	UserId      string
	RecentTurns []prompt.Turn
	Log         *audit.Record
}

func NewState(sess Session) State {
	return State{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: sess.UserQuery}},
		Summary:     sess.Summary,
		UserQuery:   sess.UserQuery,
		UserId:      sess.UserId,
		RecentTurns: sess.RecentTurns,
		Log:         audit.NewRecord(sess.UserQuery, sess.UserId, sess.ChatId, sess.ParentMessageId),
	}
}

// With returns a copy of s with msg appended.
func (s State) With(msg llm.Message) State {
	messages := make([]llm.Message, len(s.Messages), len(s.Messages)+1)
	copy(messages, s.Messages)
	s.Messages = append(messages, msg)
	return s
}

// Last is the output of the most recent node.
func (s State) Last() llm.Message {
	if len(s.Messages) == 0 {
		return llm.Message{}
	}
	return s.Messages[len(s.Messages)-1]
}
