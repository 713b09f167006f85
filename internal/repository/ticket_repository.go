package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/persistence"
)

// TicketFilter captures list/board query parameters. Filters compose
// conjunctively. Active selects every non-done status.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Active     bool
	AssigneeID *string
	CreatorID  *string
	Priority   *domain.TicketPriority
	Type       *domain.TicketType
	Search     *string
	OrderAsc   bool
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row for the remainder of the surrounding
	// transaction so concurrent updaters serialize on it.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pg *persistence.Postgres
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pg *persistence.Postgres) TicketRepository {
	return &ticketRepository{pg: pg}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	// The subselect assigns the next workspace-scoped number; the unique
	// index on number rejects the loser of a concurrent create with 23505.
	// The violation aborts the surrounding transaction, so the caller must
	// retry by re-running the whole transaction, never this statement.
	const query = `
        INSERT INTO tickets (number, title, description, type, priority, status, creator_id, assignee_id, reviewer_id)
        VALUES ((SELECT COALESCE(MAX(number), 0) + 1 FROM tickets), $1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, number, created_at, updated_at`

	return r.pg.Querier(ctx).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		ticket.AssigneeID,
		ticket.ReviewerID,
	).Scan(&ticket.ID, &ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, type=$3, priority=$4, status=$5,
            assignee_id=$6, reviewer_id=$7, resolved_at=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	err := r.pg.Querier(ctx).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeID,
		ticket.ReviewerID,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

const ticketColumns = `id, number, title, description, type, priority, status,
               creator_id, assignee_id, reviewer_id, created_at, updated_at, resolved_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pg.Querier(ctx).QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	} else if filter.Active {
		args = append(args, domain.TicketStatusDone)
		clauses = append(clauses, fmt.Sprintf("status <> $%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		clauses = append(clauses, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}

	order := "ORDER BY created_at DESC, number DESC"
	if filter.OrderAsc {
		order = "ORDER BY created_at ASC, number ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s %s LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.pg.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
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

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.ReviewerID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	)
}
