package pipeline

import (
	"context"
	"fmt"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/metrics"
)

const ModuleQuerySummarizer = "query_summarizer"

type Summarizer struct {
	provider    llm.LLMProvider
	usage       llm.UsageSink
	basePrompt  string
	temperature float64
	logger      logger.ILogger
}

func NewSummarizer(provider llm.LLMProvider, usage llm.UsageSink, basePrompt string, temperature float64, log logger.ILogger) *Summarizer {
	return &Summarizer{
		provider:    provider,
		usage:       usage,
		basePrompt:  basePrompt,
		temperature: temperature,
		logger:      log,
	}
}

// Messages builds the two-turn chat sent to the summarizer model.
func (s *Summarizer) Messages(state State) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: s.basePrompt + "\n" + state.Summary},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Current Data from RAG: %s\n\nUser Query: %s", state.Last().Content, state.UserQuery)},
	}
}

// Run streams the summary through emit and appends the full text as an
// assistant message.
func (s *Summarizer) Run(ctx context.Context, state State, emit Emit) (State, error) {
	start := time.Now()
	defer func() {
		state.Log.SummarizerLatency = time.Since(start)
		metrics.StageDuration.WithLabelValues("summarizer").Observe(time.Since(start).Seconds())
	}()

	provider := llm.Track(s.provider, s.usage, llm.CallMetadata{
		Module: ModuleQuerySummarizer,
		UserId: state.UserId,
		Query:  state.UserQuery,
	})

	var emitErr error
	resp, err := provider.ChatStream(ctx, s.Messages(state), func(delta string) error {
		if err := emit(delta); err != nil {
			emitErr = err
			return err
		}
		return nil
	}, llm.WithTemperature(s.temperature))

	if emitErr != nil {
		state.Log.Fail(audit.StatusFailed, "client disconnected during streaming")
		return state, fmt.Errorf("%w: %v", ErrStreamAborted, emitErr)
	}
	if err != nil {
		state.Log.Fail(audit.StatusQuerySummarizationFailed, err.Error())
		s.logger.Error("SUMMARIZER", "Summarization failed", map[string]interface{}{
			"user_id": state.UserId,
			"error":   err.Error(),
		})
		return state, fmt.Errorf("%w: %v", ErrQuerySummarizationFailed, err)
	}

	state.Log.ResponseSummary = resp.Content
	state.Log.SetStatus(audit.StatusQuerySummarizationSuccess)
	return state.With(llm.Message{Role: llm.RoleAssistant, Content: resp.Content}), nil
}
