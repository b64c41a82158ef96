package llm

import (
	"context"
	"strings"
	"time"
)

// CallMetadata identifies who made an LLM call and why.
type CallMetadata struct {
	Module string
	UserId string
	Query  string
}

type UsageRecord struct {
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Module           string    `json:"module"`
	UserId           string    `json:"user_id"`
	Query            string    `json:"query"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	LatencyMs        int64     `json:"latency_ms"`
	Streamed         bool      `json:"streamed"`
	Error            string    `json:"error,omitempty"`
	At               time.Time `json:"at"`
}

// UsageSink receives one record per LLM call.
type UsageSink interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}

type trackedProvider struct {
	LLMProvider
	sink UsageSink
	meta CallMetadata
}

// Track wraps provider so every call, including failed and aborted streams,
// is reported to sink. Sink failures never reach the caller.
func Track(provider LLMProvider, sink UsageSink, meta CallMetadata) LLMProvider {
	if sink == nil {
		return provider
	}
	return &trackedProvider{LLMProvider: provider, sink: sink, meta: meta}
}

func (t *trackedProvider) Chat(ctx context.Context, history []Message, options ...Option) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		t.record(ctx, history, options, resp, "", err, start, false)
	}()
	return t.LLMProvider.Chat(ctx, history, options...)
}

func (t *trackedProvider) ChatStream(ctx context.Context, history []Message, onDelta StreamHandler, options ...Option) (resp *Response, err error) {
	start := time.Now()
	var partial strings.Builder
	defer func() {
		t.record(ctx, history, options, resp, partial.String(), err, start, true)
	}()
	return t.LLMProvider.ChatStream(ctx, history, func(delta string) error {
		partial.WriteString(delta)
		return onDelta(delta)
	}, options...)
}

func (t *trackedProvider) record(ctx context.Context, history []Message, options []Option, resp *Response, partial string, callErr error, start time.Time, streamed bool) {
	opts := ApplyOptions(Options{Model: t.ModelName()}, options...)

	rec := UsageRecord{
		Provider:  t.Name(),
		Model:     opts.Model,
		Module:    t.meta.Module,
		UserId:    t.meta.UserId,
		Query:     t.meta.Query,
		LatencyMs: time.Since(start).Milliseconds(),
		Streamed:  streamed,
		At:        time.Now(),
	}

	if resp != nil {
		if resp.Model != "" {
			rec.Model = resp.Model
		}
		rec.PromptTokens = resp.Usage.PromptTokens
		rec.CompletionTokens = resp.Usage.CompletionTokens
		if rec.CompletionTokens == 0 {
			rec.CompletionTokens = EstimateTokens(resp.Content)
		}
	} else {
		rec.CompletionTokens = EstimateTokens(partial)
	}
	if rec.PromptTokens == 0 {
		rec.PromptTokens = estimatePromptTokens(history)
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	rec.CostUSD = EstimateCost(rec.Model, rec.PromptTokens, rec.CompletionTokens)

	// The request context may already be cancelled on stream abort.
	_ = t.sink.RecordUsage(context.WithoutCancel(ctx), rec)
}
