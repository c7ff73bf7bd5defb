package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"car-assist-rag/internal/logger"
)

// CachedEmbedder decorates an Embedder with a Redis cache. Keys are the
// SHA-256 of model+text so the cache survives across collections. Cache
// failures fall through to the live embedder; they never fail a request.
type CachedEmbedder struct {
	inner Embedder
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

func NewCachedEmbedder(inner Embedder, rdb *redis.Client, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, rdb: rdb, model: model, ttl: ttl}
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) == c.inner.Dimensions() {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Debug("embedding cache write failed", "error", err)
		}
	}

	return vec, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "embed:" + hex.EncodeToString(sum[:])
}
