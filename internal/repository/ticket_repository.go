package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
//
// Update overwrites the stored row with the given ticket; concurrent
// writers are not detected and the last one wins.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, query TicketQuery) ([]domain.Ticket, error)
	Count(ctx context.Context, query TicketQuery) (int, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	CountByPriority(ctx context.Context) (map[domain.TicketPriority]int, error)
	AverageResolutionHours(ctx context.Context) (*float64, error)
}

// ErrDuplicateReference is returned when a ticket reference is already taken.
var ErrDuplicateReference = errors.New("ticket reference already taken")

const referenceConstraint = "tickets_reference_key"

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, reference, title, description, status, priority, category,
               creator_id, assignee_id, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (reference, title, description, status, priority, category, creator_id, assignee_id, created_at, updated_at, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		ticket.Reference,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CreatorID,
		ticket.AssigneeID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
	).Scan(&ticket.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == referenceConstraint {
		return ErrDuplicateReference
	}
	return err
}

// Update never writes creator_id or created_at.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, category=$5,
            assignee_id=$6, updated_at=$7, resolved_at=$8
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssigneeID,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, q TicketQuery) ([]domain.Ticket, error) {
	query, args := buildTicketSelect(q)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context, q TicketQuery) (int, error) {
	where, args := buildTicketWhere(q)
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	counts, err := r.countGrouped(ctx, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.TicketStatus]int, len(counts))
	for key, n := range counts {
		out[domain.TicketStatus(key)] = n
	}
	return out, nil
}

func (r *ticketRepository) CountByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	counts, err := r.countGrouped(ctx, "priority")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.TicketPriority]int, len(counts))
	for key, n := range counts {
		out[domain.TicketPriority(key)] = n
	}
	return out, nil
}

func (r *ticketRepository) countGrouped(ctx context.Context, column string) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM tickets GROUP BY %s`, column, column)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = int(n)
	}
	return counts, rows.Err()
}

// AverageResolutionHours returns nil when no ticket has been resolved.
func (r *ticketRepository) AverageResolutionHours(ctx context.Context) (*float64, error) {
	const query = `
        SELECT (AVG(EXTRACT(EPOCH FROM (resolved_at - created_at))) / 3600.0)::float8
        FROM tickets WHERE resolved_at IS NOT NULL`
	var avg *float64
	if err := r.pool.QueryRow(ctx, query).Scan(&avg); err != nil {
		return nil, err
	}
	return avg, nil
}

func buildTicketSelect(q TicketQuery) (string, []any) {
	where, args := buildTicketWhere(q)
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where
	if order := buildTicketOrder(q.OrderBy); order != "" {
		query += ` ORDER BY ` + order
	}
	return query, args
}

func buildTicketWhere(q TicketQuery) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if q.CreatorID != nil {
		args = append(args, *q.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if q.AssigneeID != nil {
		args = append(args, *q.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if q.Unassigned {
		clauses = append(clauses, "assignee_id IS NULL")
	}
	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for i, status := range q.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(q.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(q.ExcludeStatuses))
		for i, status := range q.ExcludeStatuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(q.Priorities) > 0 {
		placeholders := make([]string, len(q.Priorities))
		for i, pr := range q.Priorities {
			args = append(args, string(pr))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if q.Category != nil {
		args = append(args, string(*q.Category))
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if kw := q.keyword(); kw != "" {
		args = append(args, "%"+escapeLike(kw)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", placeholder, placeholder))
	}
	if q.CreatedFrom != nil {
		args = append(args, *q.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func buildTicketOrder(keys []SortKey) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		expr := "created_at"
		switch key.Field {
		case SortPriority:
			expr = rankCase("priority", priorityValues())
		case SortStatus:
			expr = rankCase("status", statusValues())
		}
		if key.Desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, ", ")
}

// rankCase maps enum text to its position so ordering follows rank, not spelling.
func rankCase(column string, values []string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for i, v := range values {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", v, i+1)
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}

func priorityValues() []string {
	out := make([]string, len(domain.TicketPriorities))
	for i, p := range domain.TicketPriorities {
		out[i] = string(p)
	}
	return out
}

func statusValues() []string {
	out := make([]string, len(domain.TicketStatuses))
	for i, s := range domain.TicketStatuses {
		out[i] = string(s)
	}
	return out
}

// validID keeps malformed identifiers from reaching the uuid columns, where
// they would fail as a cast error instead of a missing row.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Reference,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
