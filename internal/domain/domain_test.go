package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRoleSetAlwaysContainsUser(t *testing.T) {
	var empty RoleSet
	if !empty.Has(RoleUser) {
		t.Fatal("zero RoleSet must contain USER")
	}
	set := NewRoleSet(RoleTechnician)
	got := set.Strings()
	if len(got) != 2 || got[0] != "USER" || got[1] != "TECHNICIAN" {
		t.Fatalf("unexpected roles %v", got)
	}
}

func TestRoleSetMembership(t *testing.T) {
	tests := []struct {
		name    string
		roles   []Role
		staff   bool
		admin   bool
		unknown bool
	}{
		{name: "plain user", roles: nil},
		{name: "technician", roles: []Role{RoleTechnician}, staff: true},
		{name: "admin", roles: []Role{RoleAdmin}, staff: true, admin: true},
		{name: "unknown ignored", roles: []Role{"ROLE_ADMIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewRoleSet(tt.roles...)
			if set.IsStaff() != tt.staff {
				t.Errorf("IsStaff = %v, want %v", set.IsStaff(), tt.staff)
			}
			if set.IsAdmin() != tt.admin {
				t.Errorf("IsAdmin = %v, want %v", set.IsAdmin(), tt.admin)
			}
			if set.Has("ROLE_ADMIN") {
				t.Error("unknown role must never be a member")
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" technician ")
	if err != nil || role != RoleTechnician {
		t.Fatalf("ParseRole = %q, %v", role, err)
	}
	var invalid *InvalidValueError
	if _, err := ParseRole("ROLE_TECHNICIEN"); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidValueError, got %v", err)
	}
}

func TestParseTicketEnums(t *testing.T) {
	if _, err := ParseTicketStatus("bogus"); err == nil {
		t.Error("bogus status accepted")
	}
	if s, err := ParseTicketStatus("in_progress"); err != nil || s != TicketStatusInProgress {
		t.Errorf("ParseTicketStatus = %q, %v", s, err)
	}
	if _, err := ParseTicketPriority("critical"); err == nil {
		t.Error("unknown priority accepted")
	}
	if _, err := ParseTicketCategory("network"); err != nil {
		t.Errorf("network rejected: %v", err)
	}
	if _, err := ParseTicketCategory("printer"); err == nil {
		t.Error("unknown category accepted")
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	if !(TicketPriorityUrgent.Rank() > TicketPriorityHigh.Rank() &&
		TicketPriorityHigh.Rank() > TicketPriorityNormal.Rank() &&
		TicketPriorityNormal.Rank() > TicketPriorityLow.Rank()) {
		t.Fatal("priority ranks out of order")
	}
	if TicketPriority("bogus").Rank() != 0 {
		t.Fatal("unknown priority must rank 0")
	}
}

func TestNewTicketDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := NewTicket("u1", "  Printer jam ", "Tray 2", TicketCategoryHardware, "", now)
	if ticket.Status != TicketStatusOpen {
		t.Errorf("status = %q, want open", ticket.Status)
	}
	if ticket.Priority != TicketPriorityNormal {
		t.Errorf("priority = %q, want normal", ticket.Priority)
	}
	if ticket.Title != "Printer jam" {
		t.Errorf("title not trimmed: %q", ticket.Title)
	}
	if !ticket.CreatedAt.Equal(now) || ticket.UpdatedAt != nil || ticket.ResolvedAt != nil || ticket.AssigneeID != nil {
		t.Errorf("unexpected timestamps/assignee on new ticket: %+v", ticket)
	}
}

func TestTicketCloneIsDeep(t *testing.T) {
	assignee := "tech"
	now := time.Now()
	ticket := &Ticket{ID: "t1", AssigneeID: &assignee, UpdatedAt: &now}
	cp := ticket.Clone()
	*cp.AssigneeID = "other"
	*cp.UpdatedAt = now.Add(time.Hour)
	if *ticket.AssigneeID != "tech" || !ticket.UpdatedAt.Equal(now) {
		t.Fatal("clone shares pointers with original")
	}
}
