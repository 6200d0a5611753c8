package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	statsKey      = "helpdesk:dashboard:stats"
	generationKey = "helpdesk:dashboard:generation"
)

var errGenerationMoved = errors.New("stats generation moved")

// StatsCache stores the most recent dashboard aggregate.
//
// Every Invalidate advances a generation counter. Callers read Generation
// before aggregating and pass it to Set, which drops the write if an
// invalidation happened in between.
type StatsCache interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context) (*domain.DashboardStats, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, stats *domain.DashboardStats, generation int64) error
	Invalidate(ctx context.Context) error
}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache returns a Redis-backed cache, or a no-op cache when client is
// nil or ttl is not positive.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) StatsCache {
	if client == nil || ttl <= 0 {
		return Noop()
	}
	return &redisStatsCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisStatsCache) Get(ctx context.Context) (*domain.DashboardStats, error) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStats(raw)
}

func (c *redisStatsCache) Generation(ctx context.Context) (int64, error) {
	return readGeneration(ctx, c.client)
}

func (c *redisStatsCache) Set(ctx context.Context, stats *domain.DashboardStats, generation int64) error {
	raw, err := encodeStats(stats)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey, raw, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	if errors.Is(err, errGenerationMoved) || errors.Is(err, redis.TxFailedErr) {
		c.logger.Debug("dashboard stats outdated before caching", zap.Int64("generation", generation))
		return nil
	}
	return err
}

func (c *redisStatsCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Debug("dashboard stats invalidated")
	return nil
}

// Both *redis.Client and *redis.Tx satisfy getter.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter) (int64, error) {
	generation, err := cmd.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func encodeStats(stats *domain.DashboardStats) ([]byte, error) {
	return json.Marshal(stats)
}

func decodeStats(raw []byte) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type noopStatsCache struct{}

// Noop returns a cache that never stores anything.
func Noop() StatsCache {
	return noopStatsCache{}
}

func (noopStatsCache) Get(context.Context) (*domain.DashboardStats, error) { return nil, nil }
func (noopStatsCache) Generation(context.Context) (int64, error) { return 0, nil }
func (noopStatsCache) Set(context.Context, *domain.DashboardStats, int64) error { return nil }
func (noopStatsCache) Invalidate(context.Context) error { return nil }
