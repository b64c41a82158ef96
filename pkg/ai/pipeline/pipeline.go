package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-finance-assistant-be/internal/constant"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/pkg/ai/router"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/metrics"
	"ai-finance-assistant-be/pkg/safety"
)

// Guard is the safety surface the pipeline needs.
type Guard interface {
	DetectMalicious(query string) (*safety.Finding, bool)
	Sanitize(chunk string) string
}

// Sentinel correlates the stream with the persisted chat message.
type Sentinel struct {
	ChatId          uint  `json:"chat_id"`
	MessageId       uint  `json:"message_id"`
	ParentMessageId *uint `json:"parent_message_id"`
}

// Encode renders the stream suffix: newline, <END>, JSON.
func (s Sentinel) Encode() string {
	b, _ := json.Marshal(s)
	return constant.StreamSentinelPrefix + string(b)
}

// PersistFunc stores the finished exchange and returns the ids for the sentinel.
type PersistFunc func(ctx context.Context, response string, rec *audit.Record) (*Sentinel, error)

// Result is what a finished run leaves behind.
type Result struct {
	Response string
	Route    router.Route
	Messages []llm.Message
	Sentinel *Sentinel
	Record   *audit.Record
}

type Pipeline struct {
	generator  *Generator
	executor   *Executor
	summarizer *Summarizer
	guard      Guard
	audit      audit.Sink
	logger     logger.ILogger
}

func New(generator *Generator, executor *Executor, summarizer *Summarizer, guard Guard, auditSink audit.Sink, log logger.ILogger) *Pipeline {
	return &Pipeline{
		generator:  generator,
		executor:   executor,
		summarizer: summarizer,
		guard:      guard,
		audit:      auditSink,
		logger:     log,
	}
}

// Compile wires Generator, Executor and Summarizer. Only Summarizer deltas stream.
func (p *Pipeline) Compile(chosen *router.Route) *Graph {
	return NewGraph().
		AddNode(NodeGenerator, p.generator.Run).
		AddNode(NodeExecutor, p.executor.Run).
		AddNode(NodeSummarizer, p.summarizer.Run).
		SetStart(NodeGenerator).
		AddConditionalEdge(NodeGenerator, func(state State) string {
			route := router.RouteMessages(state.Messages)
			metrics.RouteTotal.WithLabelValues(string(route)).Inc()
			if chosen != nil {
				*chosen = route
			}
			if route == router.RouteExecute {
				return NodeExecutor
			}
			return NodeSummarizer
		}).
		AddEdge(NodeExecutor, NodeSummarizer).
		AddEdge(NodeSummarizer, End).
		StreamFrom(NodeSummarizer)
}

// Screen rejects malicious queries before any model call. A rejection
// writes the failed request record and a separate malicious record.
func (p *Pipeline) Screen(sess Session) error {
	finding, flagged := p.guard.DetectMalicious(sess.UserQuery)
	if !flagged {
		return nil
	}

	rec := audit.NewRecord(sess.UserQuery, sess.UserId, sess.ChatId, sess.ParentMessageId)
	rec.Fail(audit.StatusFailed, "malicious content detected")
	p.audit.Enqueue(rec)

	malicious := rec.Derive(audit.StatusMalicious)
	malicious.MaliciousContent = sess.UserQuery
	malicious.ErrorMessage = fmt.Sprintf("input guard %s: %s", finding.RuleId, finding.Description)
	p.audit.Enqueue(malicious)

	metrics.RequestsTotal.WithLabelValues(string(audit.StatusMalicious)).Inc()
	p.logger.Warn("PIPELINE", "Malicious query rejected", map[string]interface{}{
		"user_id": sess.UserId,
		"rule":    finding.RuleId,
	})
	return serverutils.NewValidationError("Your request could not be processed because it contains disallowed content.")
}

// Process runs one request. Sanitized summary chunks are written to out as
// they arrive; on success persist is called and the sentinel is written last.
// On failure the apology is written if nothing was streamed yet. The audit
// record is enqueued on every exit path.
func (p *Pipeline) Process(ctx context.Context, sess Session, out llm.StreamHandler, persist PersistFunc) (*Result, error) {
	start := time.Now()
	state := NewState(sess)
	rec := state.Log
	result := &Result{Record: rec}

	defer func() {
		rec.TotalLatency = time.Since(start)
		rec.UpdatedAt = time.Now()
		metrics.StageDuration.WithLabelValues("total").Observe(rec.TotalLatency.Seconds())
		metrics.RequestsTotal.WithLabelValues(string(rec.Status)).Inc()
		p.audit.Enqueue(rec)
	}()

	var (
		streamed  strings.Builder
		wrote     bool
		sanitized bool
		outErr    error
	)
	onDelta := func(delta string) error {
		clean := p.guard.Sanitize(delta)
		if clean != delta && !sanitized {
			sanitized = true
			p.recordSanitization(rec, clean)
		}
		if clean == "" {
			return nil
		}
		if !wrote {
			metrics.TimeToFirstChunk.Observe(time.Since(start).Seconds())
		}
		wrote = true
		streamed.WriteString(clean)
		if err := out(clean); err != nil {
			outErr = err
			return err
		}
		return nil
	}

	final, err := p.Compile(&result.Route).Run(ctx, state, onDelta)
	result.Messages = final.Messages
	result.Response = streamed.String()
	rec.ResponseSummary = result.Response
	if rec.MaliciousContent != "" {
		p.recordOutputGuard(rec)
	}

	if err != nil {
		p.logger.Error("PIPELINE", "Pipeline run failed", map[string]interface{}{
			"user_id": sess.UserId,
			"route":   string(result.Route),
			"error":   err.Error(),
		})
		if rec.ErrorMessage == "" {
			rec.Fail(audit.StatusFailed, err.Error())
		}
		if !wrote && outErr == nil && !errors.Is(err, ErrStreamAborted) {
			_ = out(constant.AssistantApologyMessage)
		}
		return result, err
	}

	if persist != nil {
		sentinel, err := persist(ctx, result.Response, rec)
		if err != nil {
			p.logger.Error("PIPELINE", "Failed to persist chat message", map[string]interface{}{
				"user_id": sess.UserId,
				"error":   err.Error(),
			})
			rec.Fail(audit.StatusFailed, "failed to persist chat message: "+err.Error())
			return result, err
		}
		result.Sentinel = sentinel
		if sentinel != nil {
			if err := out(sentinel.Encode()); err != nil {
				rec.Fail(audit.StatusFailed, "client disconnected before end of stream")
				return result, fmt.Errorf("%w: %v", ErrStreamAborted, err)
			}
		}
	}
	return result, nil
}

// recordOutputGuard enqueues a security record when generator output was
// replaced. The request record keeps its own stage status.
func (p *Pipeline) recordOutputGuard(rec *audit.Record) {
	event := rec.Derive(audit.StatusMalicious)
	event.MaliciousContent = rec.MaliciousContent
	event.GeneratedESQuery = rec.GeneratedESQuery
	event.ErrorMessage = "sensitive content in generator output"
	if !p.audit.Enqueue(event) {
		p.logger.Warn("PIPELINE", "Output guard event dropped", map[string]interface{}{
			"user_id": rec.UserId,
		})
	}
}

// recordSanitization enqueues the side-channel record for the first redacted chunk.
func (p *Pipeline) recordSanitization(rec *audit.Record, cleanChunk string) {
	event := rec.Derive(audit.StatusResponseSanitizationSuccess)
	event.MaliciousContent = "sensitive data redacted from response stream"
	event.ResponseSummary = cleanChunk
	if !p.audit.Enqueue(event) {
		p.logger.Warn("PIPELINE", "Sanitization event dropped", map[string]interface{}{
			"user_id": rec.UserId,
		})
	}
	metrics.SanitizationsTotal.Inc()
}
