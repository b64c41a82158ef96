package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ai-finance-assistant-be/internal/constant"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/metrics"
)

const (
	dialectCount  = "count"
	dialectSearch = "search"
)

// Keys the count endpoint rejects in a request body.
var searchOnlyKeys = []string{"size", "track_total_hits", "from", "sort", "_source", "timeout", "highlight"}

// SearchClient is the slice of Elasticsearch the executor needs.
type SearchClient interface {
	Count(ctx context.Context, index string, body map[string]any) (int64, error)
	Search(ctx context.Context, index string, body map[string]any) (map[string]any, error)
}

// Envelope is the generator's JSON contract.
type Envelope struct {
	Index string
	Query map[string]any
}

type Executor struct {
	client  SearchClient
	allowed map[string]struct{}
	logger  logger.ILogger
}

func NewExecutor(client SearchClient, allowedIndices []string, log logger.ILogger) *Executor {
	allowed := make(map[string]struct{}, len(allowedIndices))
	for _, idx := range allowedIndices {
		allowed[idx] = struct{}{}
	}
	return &Executor{client: client, allowed: allowed, logger: log}
}

// Run dispatches the envelope in the last message and appends the response
// as a tool message.
func (e *Executor) Run(ctx context.Context, state State, _ Emit) (State, error) {
	start := time.Now()

	result, err := e.execute(ctx, state.Last().Content)

	state.Log.ExecutorLatency = time.Since(start)
	metrics.StageDuration.WithLabelValues("executor").Observe(time.Since(start).Seconds())

	if result != nil {
		if raw, mErr := json.Marshal(result); mErr == nil {
			state.Log.GeneratedESResponse = raw
		}
	}
	if err != nil {
		state.Log.Fail(audit.StatusQueryExecutionFailed, ErrQueryExecutionFailed.Error())
		e.logger.Error("EXECUTOR", "Query execution failed", map[string]interface{}{
			"user_id": state.UserId,
			"error":   err.Error(),
		})
		return state, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	content, err := json.Marshal(result)
	if err != nil {
		state.Log.Fail(audit.StatusQueryExecutionFailed, ErrQueryExecutionFailed.Error())
		return state, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	state.Log.SetStatus(audit.StatusQueryExecutionSuccess)
	return state.With(llm.Message{Role: llm.RoleTool, Content: string(content)}), nil
}

func (e *Executor) execute(ctx context.Context, content string) (map[string]any, error) {
	env, err := ParseEnvelope(content)
	if err != nil {
		return nil, err
	}
	if _, ok := e.allowed[env.Index]; !ok {
		return nil, fmt.Errorf("index %q is not permitted", env.Index)
	}

	if IsCountMode(env.Query) {
		metrics.ExecutorDialectTotal.WithLabelValues(dialectCount, env.Index).Inc()
		return e.count(ctx, env)
	}
	metrics.ExecutorDialectTotal.WithLabelValues(dialectSearch, env.Index).Inc()
	return e.search(ctx, env)
}

func (e *Executor) count(ctx context.Context, env *Envelope) (map[string]any, error) {
	body := cloneBody(env.Query)
	for _, k := range searchOnlyKeys {
		delete(body, k)
	}

	n, err := e.client.Count(ctx, env.Index, body)
	if err != nil {
		return nil, err
	}
	e.logger.Info("EXECUTOR", "Count dispatched", map[string]interface{}{
		"index": env.Index,
		"count": n,
	})
	return countResponse(n), nil
}

func (e *Executor) search(ctx context.Context, env *Envelope) (map[string]any, error) {
	body := cloneBody(env.Query)

	size, present, err := intField(body, "size")
	if err != nil {
		return nil, err
	}
	if !present {
		size = constant.DefaultSearchSize
		body["size"] = size
	}
	body["timeout"] = constant.SearchServerTimeout
	body["track_total_hits"] = true

	resp, err := e.client.Search(ctx, env.Index, body)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = map[string]any{}
	}
	if _, ok := resp["hits"].(map[string]any); !ok {
		resp["hits"] = emptyHits(0)
	}

	total := totalHits(resp)
	if size == constant.DefaultSearchSize {
		resp["pagination"] = Pagination(total, constant.DefaultSearchSize)
	}

	e.logger.Info("EXECUTOR", "Search dispatched", map[string]interface{}{
		"index":      env.Index,
		"size":       size,
		"total_hits": total,
	})
	return resp, nil
}

// ParseEnvelope decodes generator output into an Envelope. Numbers are kept
// as json.Number so the DSL reaches Elasticsearch unchanged.
func ParseEnvelope(content string) (*Envelope, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid query envelope: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid query envelope: trailing content")
	}

	index, ok := raw["index"].(string)
	if !ok || index == "" {
		return nil, errors.New("invalid query envelope: missing index")
	}
	query, ok := raw["query"].(map[string]any)
	if !ok {
		return nil, errors.New("invalid query envelope: query must be an object")
	}
	return &Envelope{Index: index, Query: query}, nil
}

// IsCountMode reports size == 0, track_total_hits == true and no aggregations.
func IsCountMode(body map[string]any) bool {
	size, present, err := intField(body, "size")
	if err != nil || !present || size != 0 {
		return false
	}
	if tth, ok := body["track_total_hits"].(bool); !ok || !tth {
		return false
	}
	if _, ok := body["aggs"]; ok {
		return false
	}
	if _, ok := body["aggregations"]; ok {
		return false
	}
	return true
}

// Pagination describes the first page of a default-size search.
func Pagination(totalHits int64, pageSize int) map[string]any {
	totalPages := int64(math.Ceil(float64(totalHits) / float64(pageSize)))
	return map[string]any{
		"current_page":      1,
		"total_pages":       totalPages,
		"total_hits":        totalHits,
		"has_next_page":     totalPages > 1,
		"has_previous_page": false,
	}
}

func countResponse(n int64) map[string]any {
	return map[string]any{"hits": emptyHits(n)}
}

func emptyHits(n int64) map[string]any {
	return map[string]any{
		"total": map[string]any{"value": n, "relation": "eq"},
		"hits":  []any{},
	}
}

func totalHits(resp map[string]any) int64 {
	hits, _ := resp["hits"].(map[string]any)
	switch total := hits["total"].(type) {
	case map[string]any:
		return toInt64(total["value"])
	default:
		// pre-7.x responses report a bare number
		return toInt64(total)
	}
}

func intField(body map[string]any, key string) (int, bool, error) {
	v, ok := body[key]
	if !ok {
		return 0, false, nil
	}
	var n int64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("%s must be an integer", key)
		}
		n = parsed
	case float64:
		if t != math.Trunc(t) {
			return 0, true, fmt.Errorf("%s must be an integer", key)
		}
		n = int64(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	default:
		return 0, true, fmt.Errorf("%s must be an integer", key)
	}
	if n < 0 {
		return 0, true, fmt.Errorf("%s must be non-negative", key)
	}
	return int(n), true, nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	}
	return 0
}

// cloneBody copies the top level so injected keys never touch the envelope.
func cloneBody(body map[string]any) map[string]any {
	out := make(map[string]any, len(body)+2)
	for k, v := range body {
		out[k] = v
	}
	return out
}
