// Package policy decides who may do what with a ticket.
//
// Every function is pure: it sees only the actor and, where relevant, the
// ticket, and never touches storage. Callers load the ticket first so that
// a missing ticket is reported before any permission check.
package policy

import "github.com/spec-kit/helpdesk/internal/domain"

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow grants an operation.
func Allow() Decision { return Decision{Allowed: true} }

// Deny refuses an operation with a human-readable reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// ListScope returns the creator every listed ticket must belong to, or nil
// when the actor may list all tickets.
func ListScope(actor domain.Actor) *string {
	if actor.Roles.IsStaff() {
		return nil
	}
	id := actor.UserID
	return &id
}

// CanList allows any authenticated actor; ListScope narrows the result.
func CanList(actor domain.Actor) Decision {
	if actor.UserID == "" {
		return Deny("authentication required")
	}
	return Allow()
}

// CanView allows the creator and staff.
func CanView(actor domain.Actor, ticket *domain.Ticket) Decision {
	if ticket.IsCreator(actor.UserID) || actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("you do not have access to this ticket")
}

// CanCreate allows any authenticated actor. The creator is always the actor.
func CanCreate(actor domain.Actor) Decision {
	if actor.UserID == "" {
		return Deny("authentication required")
	}
	return Allow()
}

// CanEdit allows staff on any ticket, and the creator while the ticket is open.
func CanEdit(actor domain.Actor, ticket *domain.Ticket) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	if !ticket.IsCreator(actor.UserID) {
		return Deny("you cannot edit this ticket")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return Deny("a ticket that is no longer open cannot be edited")
	}
	return Allow()
}

// CanDelete is reserved to administrators.
func CanDelete(actor domain.Actor, _ *domain.Ticket) Decision {
	if actor.Roles.IsAdmin() {
		return Allow()
	}
	return Deny("only administrators can delete tickets")
}

// CanAssign lets technicians take a ticket.
func CanAssign(actor domain.Actor, _ *domain.Ticket) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("only technicians can assign tickets")
}

// CanChangeStatus lets technicians move a ticket to any status.
func CanChangeStatus(actor domain.Actor, _ *domain.Ticket) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("only technicians can change ticket status")
}

// CanViewDashboard gates the statistics view.
func CanViewDashboard(actor domain.Actor) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("dashboard is restricted to technicians")
}

// CanViewQueues gates the work queues (open, unassigned, urgent, search,
// category and recent listings), which span every user's tickets.
func CanViewQueues(actor domain.Actor) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("ticket queues are restricted to technicians")
}

// CanListByCreator allows users to list their own tickets and staff to list anyone's.
func CanListByCreator(actor domain.Actor, creatorID string) Decision {
	if actor.Roles.IsStaff() || (actor.UserID != "" && actor.UserID == creatorID) {
		return Allow()
	}
	return Deny("you can only list your own tickets")
}

// CanListByAssignee allows staff only; a plain user is never an assignee.
func CanListByAssignee(actor domain.Actor, _ string) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("assignment listings are restricted to technicians")
}

// CanBrowseDirectory gates user lookups by department or name.
func CanBrowseDirectory(actor domain.Actor) Decision {
	if actor.Roles.IsStaff() {
		return Allow()
	}
	return Deny("the user directory is restricted to technicians")
}
