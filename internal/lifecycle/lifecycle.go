// Package lifecycle applies status and assignment transitions to tickets.
//
// Transitions are permissive: a status change may set any of the four
// statuses, including reopening a closed ticket. The package only owns the
// timestamp side effects.
package lifecycle

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Stamp precision matches the storage column.
const stampPrecision = time.Microsecond

// ChangeStatus sets the status after validating it, stamps the update time
// and, the first time the ticket enters resolved or closed, the resolution
// time. The ticket is untouched when the status is invalid.
func ChangeStatus(ticket *domain.Ticket, status domain.TicketStatus, now time.Time) error {
	if status.Rank() == 0 {
		return &domain.InvalidValueError{Field: "status", Value: string(status)}
	}
	ticket.Status = status
	stamp := Touch(ticket, now)
	if status.IsResolution() && ticket.ResolvedAt == nil {
		resolved := stamp
		ticket.ResolvedAt = &resolved
	}
	return nil
}

// Assign hands the ticket to a technician and forces it in progress.
func Assign(ticket *domain.Ticket, technicianID string, now time.Time) {
	assignee := technicianID
	ticket.AssigneeID = &assignee
	ticket.Status = domain.TicketStatusInProgress
	Touch(ticket, now)
}

// Touch refreshes the update time and returns it. The new stamp is strictly
// later than the previous one even if the clock has not advanced.
func Touch(ticket *domain.Ticket, now time.Time) time.Time {
	stamp := now.UTC().Truncate(stampPrecision)
	if ticket.UpdatedAt != nil && !stamp.After(*ticket.UpdatedAt) {
		stamp = ticket.UpdatedAt.Add(stampPrecision)
	}
	ticket.UpdatedAt = &stamp
	return stamp
}
