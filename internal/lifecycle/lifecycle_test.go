package lifecycle

import (
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTicket() *domain.Ticket {
	return domain.NewTicket("creator", "VPN down", "cannot connect", domain.TicketCategoryNetwork, "", base)
}

func TestResolutionStampedOnce(t *testing.T) {
	ticket := newTicket()

	if err := ChangeStatus(ticket, domain.TicketStatusResolved, base.Add(time.Hour)); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if ticket.ResolvedAt == nil || !ticket.ResolvedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("ResolvedAt = %v", ticket.ResolvedAt)
	}
	first := *ticket.ResolvedAt

	steps := []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusOpen,
		domain.TicketStatusClosed,
	}
	for i, status := range steps {
		if err := ChangeStatus(ticket, status, base.Add(time.Duration(i+2)*time.Hour)); err != nil {
			t.Fatalf("ChangeStatus(%s): %v", status, err)
		}
		if !ticket.ResolvedAt.Equal(first) {
			t.Fatalf("ResolvedAt overwritten after %s: %v", status, ticket.ResolvedAt)
		}
	}
	if ticket.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %s", ticket.Status)
	}
}

func TestReopenDoesNotResolve(t *testing.T) {
	ticket := newTicket()
	if err := ChangeStatus(ticket, domain.TicketStatusInProgress, base); err != nil {
		t.Fatal(err)
	}
	if err := ChangeStatus(ticket, domain.TicketStatusOpen, base); err != nil {
		t.Fatal(err)
	}
	if ticket.ResolvedAt != nil {
		t.Fatal("non-resolution statuses must not stamp resolution")
	}
}

func TestUpdateStampStrictlyIncreases(t *testing.T) {
	ticket := newTicket()
	frozen := base.Add(time.Minute)

	var previous *time.Time
	for _, status := range domain.TicketStatuses {
		if err := ChangeStatus(ticket, status, frozen); err != nil {
			t.Fatal(err)
		}
		if ticket.UpdatedAt == nil {
			t.Fatal("UpdatedAt not set")
		}
		if previous != nil && !ticket.UpdatedAt.After(*previous) {
			t.Fatalf("UpdatedAt did not increase: %v then %v", previous, ticket.UpdatedAt)
		}
		stamp := *ticket.UpdatedAt
		previous = &stamp
	}
}

func TestInvalidStatusLeavesTicketUntouched(t *testing.T) {
	ticket := newTicket()
	before := *ticket

	if err := ChangeStatus(ticket, "bogus", base.Add(time.Hour)); err == nil {
		t.Fatal("expected error")
	}
	if ticket.Status != before.Status || ticket.UpdatedAt != nil || ticket.ResolvedAt != nil {
		t.Fatalf("ticket mutated: %+v", ticket)
	}
}

func TestAssignForcesInProgress(t *testing.T) {
	ticket := newTicket()
	if err := ChangeStatus(ticket, domain.TicketStatusResolved, base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	resolved := *ticket.ResolvedAt

	Assign(ticket, "tech", base.Add(2*time.Minute))

	if ticket.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want in_progress", ticket.Status)
	}
	if ticket.AssigneeID == nil || *ticket.AssigneeID != "tech" {
		t.Errorf("assignee = %v", ticket.AssigneeID)
	}
	if !ticket.UpdatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("UpdatedAt = %v", ticket.UpdatedAt)
	}
	if !ticket.ResolvedAt.Equal(resolved) {
		t.Errorf("assignment changed ResolvedAt")
	}
}
