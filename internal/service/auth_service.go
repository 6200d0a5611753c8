package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthService coordinates registration, login and the user directory.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
}

// UserInput describes a new account.
type UserInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Department *string
	Phone      *string
}

// Session is an issued bearer token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL())
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// TokenManager exposes the signer shared with the HTTP middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterUser creates an account holding only the base role and signs it in.
func (s *AuthService) RegisterUser(ctx context.Context, input UserInput) (*Session, error) {
	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// CreateUser stores a new account with the given roles. The base role is
// always included. Used by registration and the seeding tool.
func (s *AuthService) CreateUser(ctx context.Context, input UserInput, roles ...domain.Role) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	details := map[string]any{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		details["email"] = "invalid"
	}
	switch {
	case len(input.Password) < auth.MinPasswordLength:
		details["password"] = "too short"
	case len(input.Password) > auth.MaxPasswordLength:
		details["password"] = "too long"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Roles:        domain.NewRoleSet(roles...).Roles(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Department:   input.Department,
		Phone:        input.Phone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, err
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.Strings("roles", user.RoleSet().Strings()))
	return user, nil
}

// GrantRoles adds roles to an existing account, identified by email.
func (s *AuthService) GrantRoles(ctx context.Context, email string, roles ...domain.Role) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	granted := domain.NewRoleSet(append(user.Roles, roles...)...)
	user.Roles = granted.Roles()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapNotFound(err, "user")
	}

	s.logger.Info("user roles granted", zap.String("user_id", user.ID), zap.Strings("roles", granted.Strings()))
	return user, nil
}

// ListTechnicians returns every user who can work tickets, by name.
func (s *AuthService) ListTechnicians(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return s.users.ListTechnicians(ctx)
}

// UsersByDepartment lists the members of a department, by name.
func (s *AuthService) UsersByDepartment(ctx context.Context, actor domain.Actor, department string) ([]domain.User, error) {
	if err := enforce(policy.CanBrowseDirectory(actor)); err != nil {
		return nil, err
	}
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, apperrors.NewValidationError("invalid department", map[string]any{"department": "required"})
	}
	return s.users.ListByDepartment(ctx, department)
}

// SearchUsers matches a fragment of first or last name, by name.
func (s *AuthService) SearchUsers(ctx context.Context, actor domain.Actor, name string) ([]domain.User, error) {
	if err := enforce(policy.CanBrowseDirectory(actor)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("invalid search", map[string]any{"q": "required"})
	}
	return s.users.SearchByName(ctx, name)
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.RoleSet())
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
