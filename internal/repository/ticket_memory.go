package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// memoryTicketRepository keeps tickets in process memory. It is used when no
// database is configured and by tests. Tickets are copied on every read and
// write so callers never share state with the store.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	order   []string
}

// NewMemoryTicketRepository returns an empty in-memory store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.tickets {
		if ticket.Reference != "" && stored.Reference == ticket.Reference {
			return ErrDuplicateReference
		}
	}
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	r.tickets[ticket.ID] = ticket.Clone()
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := ticket.Clone()
	updated.CreatorID = stored.CreatorID
	updated.CreatedAt = stored.CreatedAt
	updated.Reference = stored.Reference
	r.tickets[ticket.ID] = updated
	return nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) List(_ context.Context, q TicketQuery) ([]domain.Ticket, error) {
	r.mu.RLock()
	matched := make([]*domain.Ticket, 0, len(r.order))
	for _, id := range r.order {
		ticket := r.tickets[id]
		if q.Matches(ticket) {
			matched = append(matched, ticket.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return q.Less(matched[i], matched[j])
	})
	result := make([]domain.Ticket, len(matched))
	for i, ticket := range matched {
		result[i] = *ticket
	}
	return result, nil
}

func (r *memoryTicketRepository) Count(_ context.Context, q TicketQuery) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ticket := range r.tickets {
		if q.Matches(ticket) {
			n++
		}
	}
	return n, nil
}

func (r *memoryTicketRepository) CountByStatus(_ context.Context) (map[domain.TicketStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[domain.TicketStatus]int{}
	for _, ticket := range r.tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

func (r *memoryTicketRepository) CountByPriority(_ context.Context) (map[domain.TicketPriority]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[domain.TicketPriority]int{}
	for _, ticket := range r.tickets {
		counts[ticket.Priority]++
	}
	return counts, nil
}

func (r *memoryTicketRepository) AverageResolutionHours(_ context.Context) (*float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total float64
	n := 0
	for _, ticket := range r.tickets {
		if ticket.ResolvedAt == nil {
			continue
		}
		total += ticket.ResolvedAt.Sub(ticket.CreatedAt).Hours()
		n++
	}
	if n == 0 {
		return nil, nil
	}
	avg := total / float64(n)
	return &avg, nil
}
