package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists statuses in lifecycle order.
var TicketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}

// ParseTicketStatus validates raw input.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(strings.TrimSpace(raw))
	if status.Rank() == 0 {
		return "", &InvalidValueError{Field: "status", Value: raw}
	}
	return status, nil
}

// Rank is the lifecycle position, 0 for unknown values.
func (s TicketStatus) Rank() int {
	for i, candidate := range TicketStatuses {
		if candidate == s {
			return i + 1
		}
	}
	return 0
}

// IsResolution reports whether entering this status resolves the ticket.
func (s TicketStatus) IsResolution() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists priorities from lowest to highest.
var TicketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent}

// ParseTicketPriority validates raw input.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	priority := TicketPriority(strings.TrimSpace(raw))
	if priority.Rank() == 0 {
		return "", &InvalidValueError{Field: "priority", Value: raw}
	}
	return priority, nil
}

// Rank orders priorities: urgent > high > normal > low. Unknown values rank 0.
func (p TicketPriority) Rank() int {
	for i, candidate := range TicketPriorities {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// TicketCategory classifies the problem area.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "hardware"
	TicketCategorySoftware TicketCategory = "software"
	TicketCategoryNetwork  TicketCategory = "network"
	TicketCategoryAccount  TicketCategory = "account"
	TicketCategoryOther    TicketCategory = "other"
)

// TicketCategories lists every category.
var TicketCategories = []TicketCategory{
	TicketCategoryHardware,
	TicketCategorySoftware,
	TicketCategoryNetwork,
	TicketCategoryAccount,
	TicketCategoryOther,
}

// ParseTicketCategory validates raw input.
func ParseTicketCategory(raw string) (TicketCategory, error) {
	category := TicketCategory(strings.TrimSpace(raw))
	for _, candidate := range TicketCategories {
		if candidate == category {
			return category, nil
		}
	}
	return "", &InvalidValueError{Field: "category", Value: raw}
}

// Ticket is a support request filed by a user.
//
// CreatorID is fixed at construction. UpdatedAt and ResolvedAt are only
// written through the lifecycle package.
type Ticket struct {
	ID          string
	Reference   string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Category    TicketCategory
	CreatorID   string
	AssigneeID  *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	ResolvedAt  *time.Time
}

// NewTicket builds an open ticket. An empty priority defaults to normal.
func NewTicket(creatorID, title, description string, category TicketCategory, priority TicketPriority, now time.Time) *Ticket {
	if priority == "" {
		priority = TicketPriorityNormal
	}
	return &Ticket{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      TicketStatusOpen,
		Priority:    priority,
		Category:    category,
		CreatorID:   creatorID,
		CreatedAt:   now.UTC().Truncate(time.Microsecond),
	}
}

// IsCreator reports whether userID filed the ticket.
func (t *Ticket) IsCreator(userID string) bool {
	return userID != "" && t.CreatorID == userID
}

// IsAssigned reports whether a technician is set.
func (t *Ticket) IsAssigned() bool {
	return t.AssigneeID != nil
}

// Clone returns a deep copy.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	cp.AssigneeID = cloneString(t.AssigneeID)
	cp.UpdatedAt = cloneTime(t.UpdatedAt)
	cp.ResolvedAt = cloneTime(t.ResolvedAt)
	return &cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
