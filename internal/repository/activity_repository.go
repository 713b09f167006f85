package repository

import (
	"context"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/persistence"
)

// ActivityRepository stores append-only audit entries. Rows are never
// updated or deleted.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error)
}

type activityRepository struct {
	pg *persistence.Postgres
}

// NewActivityRepository builds repository.
func NewActivityRepository(pg *persistence.Postgres) ActivityRepository {
	return &activityRepository{pg: pg}
}

func (r *activityRepository) Create(ctx context.Context, entry *domain.ActivityEntry) error {
	const query = `
        INSERT INTO ticket_activity (ticket_id, actor_id, action, from_value, to_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, seq, created_at`
	return r.pg.Querier(ctx).QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.Action,
		entry.FromValue,
		entry.ToValue,
	).Scan(&entry.ID, &entry.Seq, &entry.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	// seq breaks created_at ties so history replays in insertion order.
	const query = `
        SELECT id, seq, ticket_id, actor_id, action, from_value, to_value, created_at
        FROM ticket_activity WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pg.Querier(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityEntry
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Seq,
			&entry.TicketID,
			&entry.ActorID,
			&entry.Action,
			&entry.FromValue,
			&entry.ToValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
