package audit

import (
	"context"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"
)

// Store persists audit records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
}

// AlertPublisher forwards security-relevant records to other systems.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, rec *Record) error
}

// Sink is what request handlers depend on.
type Sink interface {
	Enqueue(rec *Record) bool
}

// Writer buffers audit records and persists them from a single goroutine so
// that slow or failing storage never delays a client stream.
type Writer struct {
	store   Store
	alerts  AlertPublisher
	logger  logger.ILogger
	trail   logger.ILogger
	records chan *Record
	timeout time.Duration
}

// NewWriter creates a Writer with the given queue capacity. alerts and trail may be nil.
func NewWriter(store Store, alerts AlertPublisher, log logger.ILogger, trail logger.ILogger, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Writer{
		store:   store,
		alerts:  alerts,
		logger:  log,
		trail:   trail,
		records: make(chan *Record, queueSize),
		timeout: 10 * time.Second,
	}
}

// Enqueue schedules a snapshot of rec. Non-blocking; drops the record if the queue is full.
func (w *Writer) Enqueue(rec *Record) bool {
	if rec == nil {
		return false
	}
	select {
	case w.records <- rec.Snapshot():
		return true
	default:
		w.logger.Warn("AUDIT", "audit queue full, dropping record", map[string]interface{}{
			"status":  string(rec.Status),
			"user_id": rec.UserId,
		})
		return false
	}
}

// Run processes records until the context is cancelled, then drains what is left.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case rec := <-w.records:
			w.process(rec)
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case rec := <-w.records:
			w.process(rec)
		default:
			return
		}
	}
}

func (w *Writer) process(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.Save(ctx, rec); err != nil {
		w.logger.Error("AUDIT", "audit record failed", map[string]interface{}{
			"error":  err.Error(),
			"status": string(rec.Status),
		})
	}

	if w.trail != nil {
		w.trail.Info("AUDIT", string(rec.Status), map[string]interface{}{
			"id":                    rec.Id,
			"user_id":               rec.UserId,
			"chat_id":               rec.ChatId,
			"user_query":            rec.UserQuery,
			"error_message":         rec.ErrorMessage,
			"malicious_content":     rec.MaliciousContent,
			"generator_latency_ms":  rec.GeneratorLatency.Milliseconds(),
			"executor_latency_ms":   rec.ExecutorLatency.Milliseconds(),
			"summarizer_latency_ms": rec.SummarizerLatency.Milliseconds(),
			"total_latency_ms":      rec.TotalLatency.Milliseconds(),
		})
	}

	if w.alerts != nil && rec.Status.IsSecurityEvent() {
		if err := w.alerts.PublishAlert(ctx, rec); err != nil {
			w.logger.Warn("AUDIT", "security alert publish failed", map[string]interface{}{
				"error":  err.Error(),
				"status": string(rec.Status),
			})
		}
	}
}
