package repository

import (
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SortField names a ticket ordering column.
type SortField int

const (
	SortCreatedAt SortField = iota
	SortPriority
	SortStatus
)

// SortKey orders by one field. Priority and status sort by rank, not by text.
type SortKey struct {
	Field SortField
	Desc  bool
}

// TicketQuery describes a filtered, ordered ticket listing. Zero-valued
// fields do not filter. Both store implementations honor the same semantics.
type TicketQuery struct {
	CreatorID       *string
	AssigneeID      *string
	Unassigned      bool
	Statuses        []domain.TicketStatus
	ExcludeStatuses []domain.TicketStatus
	Priorities      []domain.TicketPriority
	Category        *domain.TicketCategory
	Keyword         *string
	CreatedFrom     *time.Time
	OrderBy         []SortKey
}

var newestFirst = []SortKey{{Field: SortCreatedAt, Desc: true}}

// AllTickets lists every ticket, newest first.
func AllTickets() TicketQuery {
	return TicketQuery{OrderBy: newestFirst}
}

// TicketsByCreator lists tickets filed by a user, newest first.
func TicketsByCreator(creatorID string) TicketQuery {
	return TicketQuery{CreatorID: &creatorID, OrderBy: newestFirst}
}

// TicketsByAssignee lists a technician's tickets in lifecycle order, most urgent first.
func TicketsByAssignee(assigneeID string) TicketQuery {
	return TicketQuery{
		AssigneeID: &assigneeID,
		OrderBy: []SortKey{
			{Field: SortStatus},
			{Field: SortPriority, Desc: true},
		},
	}
}

// OpenTickets lists open and in-progress tickets, most urgent then newest first.
func OpenTickets() TicketQuery {
	return TicketQuery{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		OrderBy: []SortKey{
			{Field: SortPriority, Desc: true},
			{Field: SortCreatedAt, Desc: true},
		},
	}
}

// UnassignedTickets lists tickets without a technician that are not closed,
// most urgent then oldest first.
func UnassignedTickets() TicketQuery {
	return TicketQuery{
		Unassigned:      true,
		ExcludeStatuses: []domain.TicketStatus{domain.TicketStatusClosed},
		OrderBy: []SortKey{
			{Field: SortPriority, Desc: true},
			{Field: SortCreatedAt},
		},
	}
}

// UrgentUnresolvedTickets lists urgent tickets not yet resolved or closed, oldest first.
func UrgentUnresolvedTickets() TicketQuery {
	return TicketQuery{
		Priorities:      []domain.TicketPriority{domain.TicketPriorityUrgent},
		ExcludeStatuses: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
		OrderBy:         []SortKey{{Field: SortCreatedAt}},
	}
}

// KeywordSearch matches title or description case-insensitively, newest first.
func KeywordSearch(keyword string) TicketQuery {
	return TicketQuery{Keyword: &keyword, OrderBy: newestFirst}
}

// TicketsByCategory lists one category, newest first.
func TicketsByCategory(category domain.TicketCategory) TicketQuery {
	return TicketQuery{Category: &category, OrderBy: newestFirst}
}

// TicketsCreatedSince lists tickets created at or after since, newest first.
func TicketsCreatedSince(since time.Time) TicketQuery {
	return TicketQuery{CreatedFrom: &since, OrderBy: newestFirst}
}

// Matches reports whether ticket passes every filter of q.
func (q TicketQuery) Matches(ticket *domain.Ticket) bool {
	if q.CreatorID != nil && ticket.CreatorID != *q.CreatorID {
		return false
	}
	if q.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *q.AssigneeID) {
		return false
	}
	if q.Unassigned && ticket.AssigneeID != nil {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, ticket.Status) {
		return false
	}
	if slices.Contains(q.ExcludeStatuses, ticket.Status) {
		return false
	}
	if len(q.Priorities) > 0 && !slices.Contains(q.Priorities, ticket.Priority) {
		return false
	}
	if q.Category != nil && ticket.Category != *q.Category {
		return false
	}
	if kw := q.keyword(); kw != "" {
		kw = strings.ToLower(kw)
		if !strings.Contains(strings.ToLower(ticket.Title), kw) &&
			!strings.Contains(strings.ToLower(ticket.Description), kw) {
			return false
		}
	}
	if q.CreatedFrom != nil && ticket.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	return true
}

// Less reports whether a sorts before b under q.OrderBy.
func (q TicketQuery) Less(a, b *domain.Ticket) bool {
	for _, key := range q.OrderBy {
		cmp := compareField(key.Field, a, b)
		if cmp == 0 {
			continue
		}
		if key.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func (q TicketQuery) keyword() string {
	if q.Keyword == nil {
		return ""
	}
	return strings.TrimSpace(*q.Keyword)
}

func compareField(field SortField, a, b *domain.Ticket) int {
	switch field {
	case SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortStatus:
		return a.Status.Rank() - b.Status.Rank()
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
