package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// DashboardService aggregates ticket statistics for staff.
type DashboardService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	cache   cache.StatsCache
	logger  *zap.Logger
}

// NewDashboardService constructs the service. A nil cache disables caching.
func NewDashboardService(tickets repository.TicketRepository, users repository.UserRepository, stats cache.StatsCache, logger *zap.Logger) *DashboardService {
	if stats == nil {
		stats = cache.Noop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{tickets: tickets, users: users, cache: stats, logger: logger}
}

// Stats returns the dashboard aggregate. Cache failures fall back to the store.
func (s *DashboardService) Stats(ctx context.Context, actor domain.Actor) (*domain.DashboardStats, error) {
	if err := enforce(policy.CanViewDashboard(actor)); err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	generation, err := s.cache.Generation(ctx)
	cacheable := err == nil
	if err != nil {
		s.logger.Warn("dashboard cache generation read failed", zap.Error(err))
	}

	stats, err := s.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.Set(ctx, stats, generation); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *DashboardService) aggregate(ctx context.Context) (*domain.DashboardStats, error) {
	byStatus, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.tickets.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := s.tickets.AverageResolutionHours(ctx)
	if err != nil {
		return nil, err
	}
	urgent, err := s.tickets.Count(ctx, repository.UrgentUnresolvedTickets())
	if err != nil {
		return nil, err
	}
	unassigned, err := s.tickets.Count(ctx, repository.UnassignedTickets())
	if err != nil {
		return nil, err
	}

	technicians, err := s.users.CountTechnicians(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &domain.DashboardStats{
		Total:                  total,
		ByStatus:               byStatus,
		ByPriority:             byPriority,
		AverageResolutionHours: avg,
		UrgentUnresolved:       urgent,
		Unassigned:             unassigned,
		Technicians:            technicians,
		Users:                  users,
	}, nil
}
