package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=hardware software network account other"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// EditTicketRequest payload. Omitted fields are left unchanged.
type EditTicketRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Category    *string `json:"category" validate:"omitempty,oneof=hardware software network account other"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// ChangeStatusRequest payload. The value is checked by the service so an
// unknown status surfaces after the permission check.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TicketResponse represents a ticket on the wire.
type TicketResponse struct {
	ID          string                `json:"id"`
	Reference   string                `json:"reference"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
	CreatorID   string                `json:"creator_id"`
	AssigneeID  *string               `json:"assignee_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   *time.Time            `json:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Reference:   ticket.Reference,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Category:    ticket.Category,
		CreatorID:   ticket.CreatorID,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ResolvedAt:  ticket.ResolvedAt,
	}
}

// NewTicketList maps a slice, never returning nil.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}
