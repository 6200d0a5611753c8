package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository returns an empty in-memory user store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]domain.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(user.Email, "") {
		return ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Roles = domain.NewRoleSet(user.Roles...).Roles()
	r.users[user.ID] = copyUser(*user)
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	if r.emailTaken(user.Email, user.ID) {
		return ErrDuplicateEmail
	}
	r.users[user.ID] = copyUser(*user)
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := copyUser(user)
	return &cp, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			cp := copyUser(user)
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepository) ListTechnicians(_ context.Context) ([]domain.User, error) {
	return r.filter(func(user domain.User) bool { return user.RoleSet().IsStaff() }), nil
}

func (r *memoryUserRepository) ListByDepartment(_ context.Context, department string) ([]domain.User, error) {
	return r.filter(func(user domain.User) bool {
		return user.Department != nil && *user.Department == department
	}), nil
}

func (r *memoryUserRepository) SearchByName(_ context.Context, name string) ([]domain.User, error) {
	fragment := strings.ToLower(strings.TrimSpace(name))
	return r.filter(func(user domain.User) bool {
		return strings.Contains(strings.ToLower(user.FirstName), fragment) ||
			strings.Contains(strings.ToLower(user.LastName), fragment)
	}), nil
}

func (r *memoryUserRepository) CountTechnicians(ctx context.Context) (int, error) {
	techs, err := r.ListTechnicians(ctx)
	return len(techs), err
}

func (r *memoryUserRepository) CountUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

// filter returns matching users ordered by last name, then first name.
func (r *memoryUserRepository) filter(match func(domain.User) bool) []domain.User {
	r.mu.RLock()
	result := []domain.User{}
	for _, user := range r.users {
		if match(user) {
			result = append(result, copyUser(user))
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result
}

func (r *memoryUserRepository) emailTaken(email, exceptID string) bool {
	for id, user := range r.users {
		if id != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}

func copyUser(user domain.User) domain.User {
	user.Roles = append([]domain.Role(nil), user.Roles...)
	return user
}
