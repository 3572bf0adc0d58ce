package redisclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/extract"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

const entityCachePrefix = "extract:entities:"

// CacheClient is the subset of *redis.Client the extraction cache needs.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedExtractor memoizes successful entity extractions by text. Cache
// errors never fail a request; they fall through to the wrapped extractor.
type CachedExtractor struct {
	next   extract.EntityExtractor
	client CacheClient
	ttl    time.Duration
	log    *zap.Logger
}

var _ extract.EntityExtractor = (*CachedExtractor)(nil)

func NewCachedExtractor(next extract.EntityExtractor, client CacheClient, ttl time.Duration, logger *zap.Logger) *CachedExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedExtractor{next: next, client: client, ttl: ttl, log: logger}
}

// EntityCacheKey is the Redis key for text. Surrounding whitespace is
// ignored.
func EntityCacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return entityCachePrefix + hex.EncodeToString(sum[:])
}

func (c *CachedExtractor) ExtractEntities(ctx context.Context, text string) (normalize.RawEntities, error) {
	key := EntityCacheKey(text)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached normalize.RawEntities
		if jerr := json.Unmarshal(raw, &cached); jerr == nil && cached.Confidence != nil {
			c.log.Debug("extract.cache.hit", zap.String("key", key))
			return cached, nil
		}
		c.log.Warn("extract.cache.corrupt", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("extract.cache.get_failed", zap.String("key", key), zap.Error(err))
	}

	entities, err := c.next.ExtractEntities(ctx, text)
	if err != nil {
		return entities, err
	}

	data, err := json.Marshal(entities)
	if err != nil {
		return entities, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("extract.cache.set_failed", zap.String("key", key), zap.Error(err))
	}
	return entities, nil
}
