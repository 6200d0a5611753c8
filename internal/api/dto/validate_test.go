package dto

import (
	"testing"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestValidateCreateTicket(t *testing.T) {
	err := Validate(CreateTicketRequest{Title: "t", Category: "desk", Priority: "critical"})
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := apperrors.ToDomainError(err).Details
	for _, field := range []string{"description", "category", "priority"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("missing detail for %s: %v", field, details)
		}
	}
	if details["category"] != "oneof=hardware software network account other" {
		t.Fatalf("unexpected category rule %v", details["category"])
	}

	if err := Validate(CreateTicketRequest{Title: "t", Description: "d", Category: "network"}); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}

func TestValidateEditAllowsOmittedFields(t *testing.T) {
	if err := Validate(EditTicketRequest{}); err != nil {
		t.Fatalf("empty edit rejected: %v", err)
	}
	bad := "bogus"
	if err := Validate(EditTicketRequest{Priority: &bad}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRegister(t *testing.T) {
	err := Validate(UserRegisterRequest{Email: "nope", Password: "short"})
	details := apperrors.ToDomainError(err).Details
	if details["email"] != "email" || details["password"] != "min=8" {
		t.Fatalf("unexpected details %v", details)
	}
}
