package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider memoizes embeddings per (taskType, text). Repeated questions
// skip the embedding round trip entirely.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *cache.Cache
}

func NewCachedProvider(inner EmbeddingProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func cacheKey(text, taskType string) string {
	sum := sha256.Sum256([]byte(taskType + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := cacheKey(text, taskType)
	if v, ok := c.cache.Get(key); ok {
		return v.(*EmbeddingResponse), nil
	}

	res, err := c.inner.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, res)
	return res, nil
}
