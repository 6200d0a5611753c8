package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/events"
)

// StartCacheInvalidation drops cached dashboard statistics on every ticket mutation.
func StartCacheInvalidation(dispatcher events.Dispatcher, stats cache.StatsCache, logger *zap.Logger) {
	if dispatcher == nil || stats == nil {
		return
	}
	handler := func(ctx context.Context, event events.Event) error {
		logger.Debug("invalidating dashboard stats",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
		)
		return stats.Invalidate(ctx)
	}
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, handler)
	}
}
