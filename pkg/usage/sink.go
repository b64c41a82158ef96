package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	retention     = 7 * 24 * time.Hour
	recentCallCap = 200
)

// DailyKey is the hash holding one user's counters for one UTC day.
func DailyKey(userId string, at time.Time) string {
	return fmt.Sprintf("llm_usage:%s:%s", at.UTC().Format("2006-01-02"), userId)
}

const recentKey = "llm_usage:recent"

// RedisSink aggregates token usage per user per day in Redis hashes and keeps
// a capped list of the most recent calls for inspection.
type RedisSink struct {
	rdb    redis.Cmdable
	logger logger.ILogger
}

func NewRedisSink(rdb redis.Cmdable, log logger.ILogger) *RedisSink {
	return &RedisSink{rdb: rdb, logger: log}
}

func (s *RedisSink) RecordUsage(ctx context.Context, rec llm.UsageRecord) error {
	observe(rec)

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := DailyKey(rec.UserId, rec.At)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "calls", 1)
		pipe.HIncrBy(ctx, key, "prompt_tokens", int64(rec.PromptTokens))
		pipe.HIncrBy(ctx, key, "completion_tokens", int64(rec.CompletionTokens))
		pipe.HIncrByFloat(ctx, key, "cost_usd", rec.CostUSD)
		pipe.HIncrBy(ctx, key, "calls:"+rec.Module, 1)
		pipe.Expire(ctx, key, retention)
		pipe.LPush(ctx, recentKey, payload)
		pipe.LTrim(ctx, recentKey, 0, recentCallCap-1)
		return nil
	})
	if err != nil {
		s.logger.Warn("USAGE", "failed to record llm usage", map[string]interface{}{
			"error":  err.Error(),
			"module": rec.Module,
		})
		return err
	}
	return nil
}

// LogSink writes usage records to the application log. Used when Redis is unreachable.
type LogSink struct {
	logger logger.ILogger
}

func NewLogSink(log logger.ILogger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) RecordUsage(ctx context.Context, rec llm.UsageRecord) error {
	observe(rec)
	s.logger.Info("USAGE", "llm call", map[string]interface{}{
		"provider":          rec.Provider,
		"model":             rec.Model,
		"module":            rec.Module,
		"user_id":           rec.UserId,
		"prompt_tokens":     rec.PromptTokens,
		"completion_tokens": rec.CompletionTokens,
		"cost_usd":          rec.CostUSD,
		"latency_ms":        rec.LatencyMs,
		"error":             rec.Error,
	})
	return nil
}

func observe(rec llm.UsageRecord) {
	metrics.LLMTokensTotal.WithLabelValues(rec.Module, rec.Model, "prompt").Add(float64(rec.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(rec.Module, rec.Model, "completion").Add(float64(rec.CompletionTokens))
}
