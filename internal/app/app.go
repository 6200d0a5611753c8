// Package app assembles the helpdesk service from configuration.
package app

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

// App holds the wired services and their infrastructure.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Postgres  *persistence.Postgres
	Redis     *persistence.Redis
	Metrics   *observability.Metrics
	Auth      *service.AuthService
	Tickets   *service.TicketService
	Dashboard *service.DashboardService
	Users     repository.UserRepository
}

// New connects infrastructure and builds services. An empty Postgres DSN
// selects the in-memory repositories.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)

	var (
		ticketRepo repository.TicketRepository
		userRepo   repository.UserRepository
	)
	if pg.Enabled() {
		ticketRepo = repository.NewTicketRepository(pg.PoolHandle())
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		userRepo = repository.NewMemoryUserRepository()
	}

	a := Assemble(cfg, logger, ticketRepo, userRepo, cache.NewStatsCache(rdb.Client, cfg.Cache.StatsTTL(), logger))
	a.Postgres = pg
	a.Redis = rdb
	return a, nil
}

// Assemble builds services over the given repositories. Tests use it with
// in-memory stores.
func Assemble(cfg *config.Config, logger *zap.Logger, tickets repository.TicketRepository, users repository.UserRepository, stats cache.StatsCache) *App {
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartCacheInvalidation(dispatcher, stats, logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Auth: service.NewAuthService(cfg.Auth, service.AuthDependencies{
			UserRepo: users,
			Logger:   logger,
		}),
		Tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo: tickets,
			UserRepo:   users,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		Dashboard: service.NewDashboardService(tickets, users, stats, logger),
		Users:     users,
	}
}

// HTTP builds the fiber application.
func (a *App) HTTP() *fiber.App {
	return httptransport.NewServer(a.Config.App.Name, a.Logger, a.Metrics, a.Config.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.Config.App.Name, a.Config.App.Version, a.Postgres, a.Redis),
		Users:          handlers.NewUsersHandler(a.Auth),
		Tickets:        handlers.NewTicketsHandler(a.Tickets),
		Dashboard:      handlers.NewDashboardHandler(a.Dashboard),
		AuthMiddleware: auth.NewAuthMiddleware(a.Auth.TokenManager(), a.Users),
	})
}

// Close releases infrastructure connections.
func (a *App) Close() {
	a.Redis.Close()
	a.Postgres.Close()
}
