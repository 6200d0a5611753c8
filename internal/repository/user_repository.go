package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrDuplicateEmail is returned when an email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListTechnicians(ctx context.Context) ([]domain.User, error)
	ListByDepartment(ctx context.Context, department string) ([]domain.User, error)
	SearchByName(ctx context.Context, name string) ([]domain.User, error)
	CountTechnicians(ctx context.Context) (int, error)
	CountUsers(ctx context.Context) (int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, password_hash, roles, first_name, last_name, department, phone, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash, roles, first_name, last_name, department, phone)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		roleStrings(user.Roles),
		user.FirstName,
		user.LastName,
		user.Department,
		user.Phone,
	).Scan(&user.ID, &user.CreatedAt)
	return mapUniqueViolation(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, password_hash=$2, roles=$3, first_name=$4, last_name=$5, department=$6, phone=$7
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		user.Email,
		user.PasswordHash,
		roleStrings(user.Roles),
		user.FirstName,
		user.LastName,
		user.Department,
		user.Phone,
		user.ID,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

const userOrder = ` ORDER BY last_name ASC, first_name ASC`

// ListTechnicians returns users holding TECHNICIAN or ADMIN, by name.
func (r *userRepository) ListTechnicians(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE roles && $1`+userOrder, staffRoles())
}

func (r *userRepository) ListByDepartment(ctx context.Context, department string) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE department = $1`+userOrder, department)
}

// SearchByName matches a case-insensitive fragment of the first or last name.
func (r *userRepository) SearchByName(ctx context.Context, name string) ([]domain.User, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(name)) + "%"
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE first_name ILIKE $1 OR last_name ILIKE $1`+userOrder, pattern)
}

func (r *userRepository) CountTechnicians(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users WHERE roles && $1`, staffRoles())
}

func (r *userRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func staffRoles() []string {
	return []string{string(domain.RoleTechnician), string(domain.RoleAdmin)}
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	var roles []string
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&roles,
		&user.FirstName,
		&user.LastName,
		&user.Department,
		&user.Phone,
		&user.CreatedAt,
	); err != nil {
		return err
	}
	user.Roles = parseRoles(roles)
	return nil
}

func roleStrings(roles []domain.Role) []string {
	return domain.NewRoleSet(roles...).Strings()
}

func parseRoles(raw []string) []domain.Role {
	roles := make([]domain.Role, 0, len(raw))
	for _, r := range raw {
		if role, err := domain.ParseRole(r); err == nil {
			roles = append(roles, role)
		}
	}
	return domain.NewRoleSet(roles...).Roles()
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}
