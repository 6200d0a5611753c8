package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DefaultRecentDays is the window used when RecentTickets gets no positive value.
const DefaultRecentDays = 7

const maxReferenceAttempts = 5

// TicketService coordinates ticket workflows. Every operation takes the
// acting principal explicitly; a ticket that does not exist is reported
// before any permission check.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload. Enum fields carry raw
// client values and are validated here.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
}

// TicketEditInput carries the fields to change; nil fields are left alone.
type TicketEditInput struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// ListTickets returns every ticket for staff and the actor's own tickets otherwise.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if err := enforce(policy.CanList(actor)); err != nil {
		return nil, err
	}
	if creator := policy.ListScope(actor); creator != nil {
		return s.tickets.List(ctx, repository.TicketsByCreator(*creator))
	}
	return s.tickets.List(ctx, repository.AllTickets())
}

// CreateTicket files a ticket with the actor as creator.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := enforce(policy.CanCreate(actor)); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	}
	if description == "" {
		details["description"] = "required"
	}
	category, err := domain.ParseTicketCategory(input.Category)
	if err != nil {
		details["category"] = err.Error()
	}
	priority := domain.TicketPriorityNormal
	if strings.TrimSpace(input.Priority) != "" {
		if priority, err = domain.ParseTicketPriority(input.Priority); err != nil {
			details["priority"] = err.Error()
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	ticket := domain.NewTicket(actor.UserID, title, description, category, priority, s.now())
	if err := s.insertWithReference(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("reference", ticket.Reference),
		zap.String("creator_id", actor.UserID),
	)
	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor, nil)
	return ticket, nil
}

// GetTicket returns a ticket the actor may view.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := enforce(policy.CanView(actor, ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

// EditTicket changes descriptive fields. Status and assignment have their
// own operations.
func (s *TicketService) EditTicket(ctx context.Context, actor domain.Actor, id string, input TicketEditInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := enforce(policy.CanEdit(actor, ticket)); err != nil {
		return nil, err
	}

	details := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title == "" {
			details["title"] = "required"
		} else {
			ticket.Title = title
		}
	}
	if input.Description != nil {
		if description := strings.TrimSpace(*input.Description); description == "" {
			details["description"] = "required"
		} else {
			ticket.Description = description
		}
	}
	if input.Category != nil {
		if category, err := domain.ParseTicketCategory(*input.Category); err != nil {
			details["category"] = err.Error()
		} else {
			ticket.Category = category
		}
	}
	if input.Priority != nil {
		if priority, err := domain.ParseTicketPriority(*input.Priority); err != nil {
			details["priority"] = err.Error()
		} else {
			ticket.Priority = priority
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	lifecycle.Touch(ticket, s.now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTicketUpdated, ticket.ID, actor, nil)
	return ticket, nil
}

// DeleteTicket removes a ticket. Administrators only.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, id string) error {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := enforce(policy.CanDelete(actor, ticket)); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return mapNotFound(err, "ticket")
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.UserID))
	s.publish(ctx, events.EventTicketDeleted, ticket.ID, actor, nil)
	return nil
}

// AssignTicket hands the ticket to the acting technician and moves it in progress.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := enforce(policy.CanAssign(actor, ticket)); err != nil {
		return nil, err
	}

	previous := ticket.AssigneeID
	lifecycle.Assign(ticket, actor.UserID, s.now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTicketAssigned, ticket.ID, actor, events.TicketAssignedPayload{
		PreviousAssigneeID: previous,
		AssigneeID:         actor.UserID,
	})
	return ticket, nil
}

// ChangeStatus moves the ticket to any of the four statuses. An unknown
// status is a validation error and leaves the ticket unchanged.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, id, status string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := enforce(policy.CanChangeStatus(actor, ticket)); err != nil {
		return nil, err
	}
	next, err := domain.ParseTicketStatus(status)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	previous := ticket.Status
	if err := lifecycle.ChangeStatus(ticket, next, s.now()); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, events.TicketStatusChangedPayload{
		OldStatus: previous,
		NewStatus: next,
	})
	return ticket, nil
}

// ListByCreator lists the tickets a user filed.
func (s *TicketService) ListByCreator(ctx context.Context, actor domain.Actor, creatorID string) ([]domain.Ticket, error) {
	if err := s.ensureUser(ctx, creatorID); err != nil {
		return nil, err
	}
	if err := enforce(policy.CanListByCreator(actor, creatorID)); err != nil {
		return nil, err
	}
	return s.tickets.List(ctx, repository.TicketsByCreator(creatorID))
}

// ListByAssignee lists a technician's tickets in lifecycle order.
func (s *TicketService) ListByAssignee(ctx context.Context, actor domain.Actor, assigneeID string) ([]domain.Ticket, error) {
	if err := s.ensureUser(ctx, assigneeID); err != nil {
		return nil, err
	}
	if err := enforce(policy.CanListByAssignee(actor, assigneeID)); err != nil {
		return nil, err
	}
	return s.tickets.List(ctx, repository.TicketsByAssignee(assigneeID))
}

// OpenTickets lists open and in-progress tickets, most urgent first.
func (s *TicketService) OpenTickets(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	return s.queue(ctx, actor, repository.OpenTickets())
}

// UnassignedTickets lists tickets waiting for a technician.
func (s *TicketService) UnassignedTickets(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	return s.queue(ctx, actor, repository.UnassignedTickets())
}

// UrgentTickets lists urgent tickets that are not resolved or closed.
func (s *TicketService) UrgentTickets(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	return s.queue(ctx, actor, repository.UrgentUnresolvedTickets())
}

// SearchTickets matches the keyword against title and description.
func (s *TicketService) SearchTickets(ctx context.Context, actor domain.Actor, keyword string) ([]domain.Ticket, error) {
	if strings.TrimSpace(keyword) == "" {
		if err := enforce(policy.CanViewQueues(actor)); err != nil {
			return nil, err
		}
		return nil, apperrors.NewValidationError("search keyword required", map[string]any{"q": "required"})
	}
	return s.queue(ctx, actor, repository.KeywordSearch(keyword))
}

// TicketsByCategory lists one category.
func (s *TicketService) TicketsByCategory(ctx context.Context, actor domain.Actor, category string) ([]domain.Ticket, error) {
	if err := enforce(policy.CanViewQueues(actor)); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseTicketCategory(category)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": category})
	}
	return s.tickets.List(ctx, repository.TicketsByCategory(parsed))
}

// RecentTickets lists tickets created in the last days, boundary included.
// A non-positive value uses DefaultRecentDays.
func (s *TicketService) RecentTickets(ctx context.Context, actor domain.Actor, days int) ([]domain.Ticket, error) {
	if days <= 0 {
		days = DefaultRecentDays
	}
	since := s.now().UTC().Truncate(time.Microsecond).AddDate(0, 0, -days)
	return s.queue(ctx, actor, repository.TicketsCreatedSince(since))
}

func (s *TicketService) queue(ctx context.Context, actor domain.Actor, q repository.TicketQuery) ([]domain.Ticket, error) {
	if err := enforce(policy.CanViewQueues(actor)); err != nil {
		return nil, err
	}
	return s.tickets.List(ctx, q)
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "ticket")
	}
	return ticket, nil
}

func (s *TicketService) ensureUser(ctx context.Context, id string) error {
	if s.users == nil {
		return nil
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return mapNotFound(err, "user")
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, actor domain.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(ctx, events.NewEvent(eventType, ticketID, actor.UserID, s.now().UTC(), payload))
}

// insertWithReference stores the ticket under a fresh reference, drawing a
// new one when the store reports a collision.
func (s *TicketService) insertWithReference(ctx context.Context, ticket *domain.Ticket) error {
	for attempt := 1; ; attempt++ {
		ticket.Reference = generateTicketReference()
		err := s.tickets.Create(ctx, ticket)
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return err
		}
		if attempt == maxReferenceAttempts {
			return fmt.Errorf("allocate ticket reference: %w", err)
		}
		s.logger.Warn("ticket reference collision", zap.String("reference", ticket.Reference), zap.Int("attempt", attempt))
	}
}

func generateTicketReference() string {
	return "HD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func enforce(decision policy.Decision) error {
	if decision.Allowed {
		return nil
	}
	return apperrors.NewForbidden(decision.Reason)
}

func mapNotFound(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}
