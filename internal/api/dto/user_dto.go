package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	FirstName  string  `json:"first_name" validate:"max=100"`
	LastName   string  `json:"last_name" validate:"max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	FullName   string    `json:"full_name"`
	Roles      []string  `json:"roles"`
	Department *string   `json:"department,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUserResponse maps a domain user without its credential hash.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		FullName:   user.FullName(),
		Roles:      user.RoleSet().Strings(),
		Department: user.Department,
		Phone:      user.Phone,
		CreatedAt:  user.CreatedAt,
	}
}
