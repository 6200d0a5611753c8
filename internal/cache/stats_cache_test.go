package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestStatsRoundTripKeepsEnumKeys(t *testing.T) {
	avg := 2.5
	stats := &domain.DashboardStats{
		Total:                  3,
		ByStatus:               map[domain.TicketStatus]int{domain.TicketStatusOpen: 2, domain.TicketStatusClosed: 1},
		ByPriority:             map[domain.TicketPriority]int{domain.TicketPriorityUrgent: 3},
		AverageResolutionHours: &avg,
		UrgentUnresolved:       2,
	}
	raw, err := encodeStats(stats)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeStats(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ByStatus[domain.TicketStatusOpen] != 2 || got.ByPriority[domain.TicketPriorityUrgent] != 3 {
		t.Fatalf("enum keyed maps lost: %+v", got)
	}
	if got.AverageResolutionHours == nil || *got.AverageResolutionHours != avg {
		t.Fatalf("average lost: %v", got.AverageResolutionHours)
	}
}

func TestNewStatsCacheWithoutClientIsNoop(t *testing.T) {
	c := NewStatsCache(nil, time.Minute, zap.NewNop())
	ctx := context.Background()
	if err := c.Set(ctx, &domain.DashboardStats{Total: 1}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx)
	if err != nil || got != nil {
		t.Fatalf("noop cache returned %v, %v", got, err)
	}
}

func newRedisCache(t *testing.T) (StatsCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute, zap.NewNop()), server
}

func TestRedisStatsCacheStoresWithTTL(t *testing.T) {
	c, server := newRedisCache(t)
	ctx := context.Background()

	generation, err := c.Generation(ctx)
	if err != nil || generation != 0 {
		t.Fatalf("unexpected initial generation %d (%v)", generation, err)
	}
	if err := c.Set(ctx, &domain.DashboardStats{Total: 4}, generation); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx)
	if err != nil || got == nil || got.Total != 4 {
		t.Fatalf("expected cached stats, got %+v (%v)", got, err)
	}
	if ttl := server.TTL(statsKey); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got, _ := c.Get(ctx); got != nil {
		t.Fatalf("stats survived invalidation: %+v", got)
	}
}

func TestRedisStatsCacheDropsWriteFromOlderGeneration(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	before, err := c.Generation(ctx)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	// A ticket changes while the aggregate is being computed.
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Set(ctx, &domain.DashboardStats{Total: 1}, before); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := c.Get(ctx); got != nil {
		t.Fatalf("outdated stats were cached: %+v", got)
	}

	after, err := c.Generation(ctx)
	if err != nil || after != before+1 {
		t.Fatalf("expected generation %d, got %d (%v)", before+1, after, err)
	}
	if err := c.Set(ctx, &domain.DashboardStats{Total: 2}, after); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := c.Get(ctx); got == nil || got.Total != 2 {
		t.Fatalf("current stats not cached: %+v", got)
	}
}
