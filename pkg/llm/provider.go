package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting reported by the backend (or estimated when absent).
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// StreamHandler receives each non-empty content delta. Returning an error
// aborts the stream and the error is returned from ChatStream.
type StreamHandler func(delta string) error

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the full response
	Chat(ctx context.Context, history []Message, options ...Option) (*Response, error)

	// ChatStream streams content deltas to onDelta and returns the aggregated response
	ChatStream(ctx context.Context, history []Message, onDelta StreamHandler, options ...Option) (*Response, error)

	// Name is the backend identifier ("ollama", "openai")
	Name() string

	// ModelName is the default model used when no WithModel option is given
	ModelName() string
}
