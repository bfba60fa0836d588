package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"study-assistant-be/internal/pkg/logger"
)

// CachedProvider memoises embeddings in Redis keyed by namespace, task type and text hash.
// Redis failures never fail the call; they only cost a cache miss.
type CachedProvider struct {
	inner     EmbeddingProvider
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	log       logger.ILogger
}

func NewCachedProvider(inner EmbeddingProvider, rdb *redis.Client, namespace string, ttl time.Duration, log logger.ILogger) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace, log: log}
}

func (c *CachedProvider) key(text, taskType string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + c.namespace + ":" + taskType + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := c.key(text, taskType)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var values []float32
		if jsonErr := json.Unmarshal(raw, &values); jsonErr == nil && len(values) > 0 {
			return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: values}}, nil
		}
		c.log.Warn("EMBEDDING", "Discarding corrupt cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.log.Warn("EMBEDDING", "Cache read failed", map[string]interface{}{"error": err.Error()})
	}

	resp, err := c.inner.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(resp.Embedding.Values); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn("EMBEDDING", "Cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return resp, nil
}
