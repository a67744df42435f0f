package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sigil-protocol/sigil-scan/internal/config"
	"github.com/sigil-protocol/sigil-scan/internal/scanner"
)

// ResultCache memoizes scan results for identical payloads in Redis.
// Only the reduced ScanResult is stored, keyed by a content hash; the
// pattern registry itself is never shared between processes.
type ResultCache struct {
	client *redis.Client
	config *config.CacheConfig
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache performance counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a Redis-backed result cache and verifies the connection.
func New(cfg *config.CacheConfig, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache connected",
		zap.String("key_prefix", cfg.KeyPrefix),
		zap.Duration("ttl", cfg.TTL),
	)

	return &ResultCache{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// Get returns the cached result for text, if any.
func (c *ResultCache) Get(ctx context.Context, text string) (*scanner.ScanResult, bool) {
	data, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("Result cache read failed", zap.Error(err))
		}
		c.misses.Add(1)
		return nil, false
	}

	var result scanner.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Debug("Result cache entry corrupt", zap.Error(err))
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return &result, true
}

// Set stores the result for text. Failures are logged and absorbed; a
// broken cache must never break scanning.
func (c *ResultCache) Set(ctx context.Context, text string, result scanner.ScanResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Debug("Result cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(text), data, c.config.TTL).Err(); err != nil {
		c.logger.Debug("Result cache write failed", zap.Error(err))
	}
}

// Stats returns current hit/miss counters.
func (c *ResultCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	stats := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Close releases the Redis connection pool.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

// key hashes the payload so raw scanned content never appears in Redis.
func (c *ResultCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + ":" + hex.EncodeToString(sum[:])
}
