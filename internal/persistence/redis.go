package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/config"
	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

const metricsCacheKey = "sla:metrics:snapshot"

// MetricsCache caches the fleet compliance snapshot with a TTL. Cache
// failures degrade silently to recomputation.
type MetricsCache struct {
	redis  *Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewMetricsCache creates the cache on top of the shared Redis client.
func NewMetricsCache(r *Redis, ttl time.Duration, logger *zap.Logger) *MetricsCache {
	return &MetricsCache{redis: r, ttl: ttl, logger: logger}
}

// Get returns the cached snapshot when present and fresh.
func (c *MetricsCache) Get(ctx context.Context) (*domain.SlaMetrics, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return nil, false
	}
	raw, err := c.redis.Client.Get(ctx, metricsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("metrics cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var metrics domain.SlaMetrics
	if err := json.Unmarshal(raw, &metrics); err != nil {
		c.logger.Debug("metrics cache decode failed", zap.Error(err))
		return nil, false
	}
	return &metrics, true
}

// Set stores the snapshot for the configured TTL.
func (c *MetricsCache) Set(ctx context.Context, metrics *domain.SlaMetrics) {
	if c == nil || c.redis == nil || c.redis.Client == nil || metrics == nil {
		return
	}
	raw, err := json.Marshal(metrics)
	if err != nil {
		return
	}
	if err := c.redis.Client.Set(ctx, metricsCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("metrics cache write failed", zap.Error(err))
	}
}
