package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"ai-finance-assistant-be/internal/constant"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/safety"

	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	err      error
	requests [][]llm.Message
}

func (s *scriptedLLM) Name() string { return "scripted" }
func (s *scriptedLLM) ModelName() string { return "scripted-1" }

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (*llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, history)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.reply, Model: "scripted-1"}, nil
}

func (s *scriptedLLM) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.StreamHandler, _ ...llm.Option) (*llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, history)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	full := ""
	for _, c := range s.chunks {
		full += c
		if err := onDelta(c); err != nil {
			return nil, err
		}
	}
	return &llm.Response{Content: full, Model: "scripted-1"}, nil
}

func (s *scriptedLLM) lastRequest() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

type stubES struct {
	countResult  int64
	searchResult map[string]any
	err          error

	countCalls  int
	searchCalls int
	lastIndex   string
	lastBody    map[string]any
}

func (s *stubES) Count(ctx context.Context, index string, body map[string]any) (int64, error) {
	s.countCalls++
	s.lastIndex, s.lastBody = index, body
	return s.countResult, s.err
}

func (s *stubES) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	s.searchCalls++
	s.lastIndex, s.lastBody = index, body
	if s.err != nil {
		return nil, s.err
	}
	return s.searchResult, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (m *memoryAudit) Enqueue(rec *audit.Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec.Snapshot())
	return true
}

func (m *memoryAudit) statuses() []audit.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Status, len(m.records))
	for i, r := range m.records {
		out[i] = r.Status
	}
	return out
}

type staticRetriever string

func (s staticRetriever) FetchExamples(ctx context.Context, userQuery string) string {
	return string(s)
}

type harness struct {
	generator  *scriptedLLM
	summarizer *scriptedLLM
	es         *stubES
	audit      *memoryAudit
	pipeline   *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine, err := safety.NewDefaultEngine()
	require.NoError(t, err)

	h := &harness{
		generator:  &scriptedLLM{},
		summarizer: &scriptedLLM{},
		es:         &stubES{},
		audit:      &memoryAudit{},
	}
	log := logger.NewNopLogger()
	gen := NewGenerator(h.generator, staticRetriever(""), engine, nil, constant.GeneratorBasePrompt(constant.DefaultAllowedIndices), 0.3, log)
	exec := NewExecutor(h.es, constant.DefaultAllowedIndices, log)
	sum := NewSummarizer(h.summarizer, nil, constant.SummarizerBasePrompt, 0.3, log)
	h.pipeline = New(gen, exec, sum, engine, h.audit, log)
	return h
}

type collector struct {
	chunks []string
	failAt int
}

func (c *collector) write(chunk string) error {
	if c.failAt > 0 && len(c.chunks)+1 >= c.failAt {
		return context.Canceled
	}
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *collector) body() string {
	out := ""
	for _, s := range c.chunks {
		out += s
	}
	return out
}

func persistAs(chatId, messageId uint) PersistFunc {
	return func(ctx context.Context, response string, rec *audit.Record) (*Sentinel, error) {
		return &Sentinel{ChatId: chatId, MessageId: messageId, ParentMessageId: rec.ParentMessageId}, nil
	}
}

func decodeTool(t *testing.T, content string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &out))
	return out
}
