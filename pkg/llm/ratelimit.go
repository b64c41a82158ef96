package llm

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimitedProvider struct {
	LLMProvider
	limiter *rate.Limiter
}

// RateLimited wraps a provider with a token bucket allowing rps calls per second.
// A non-positive rps returns the provider unchanged.
func RateLimited(provider LLMProvider, rps float64) LLMProvider {
	if rps <= 0 {
		return provider
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedProvider{
		LLMProvider: provider,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *rateLimitedProvider) Chat(ctx context.Context, history []Message, options ...Option) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.LLMProvider.Chat(ctx, history, options...)
}

func (r *rateLimitedProvider) ChatStream(ctx context.Context, history []Message, onDelta StreamHandler, options ...Option) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.LLMProvider.ChatStream(ctx, history, onDelta, options...)
}
