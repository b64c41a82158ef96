package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ai-finance-assistant-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements LLMProvider on the Chat Completions API.
// Any OpenAI-compatible endpoint works through baseURL.
type OpenAIProvider struct {
	client *goopenai.Client
	model  string
}

var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) ModelName() string {
	return p.model
}

func (p *OpenAIProvider) buildRequest(history []llm.Message, opts []llm.Option) goopenai.ChatCompletionRequest {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: p.model}, opts...)

	messages := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		// Tool output is replayed as plain context; there is no tool_call_id to bind it to.
		if role == llm.RoleTool {
			role = goopenai.ChatMessageRoleUser
		}
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	req := goopenai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	return req
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(history, opts))
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &llm.Response{
		Content: content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.StreamHandler, opts ...llm.Option) (*llm.Response, error) {
	req := p.buildRequest(history, opts)
	req.Stream = true
	req.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat stream: %w", err)
	}
	defer stream.Close()

	out := &llm.Response{Model: req.Model}
	var content strings.Builder

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai stream recv: %w", err)
		}

		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Usage != nil {
			out.Usage = llm.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			content.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return nil, err
			}
		}
	}

	out.Content = content.String()
	return out, nil
}
