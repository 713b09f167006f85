package repository

import (
	"context"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/persistence"
)

// NotificationRepository stores per-recipient notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	// MarkAllRead flips every unread row for the recipient and reports how
	// many were flipped; a second call affects zero rows.
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	pg *persistence.Postgres
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pg *persistence.Postgres) NotificationRepository {
	return &notificationRepository{pg: pg}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO ticket_notifications (recipient_id, ticket_id, type, message, actor_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, is_read, created_at`
	return r.pg.Querier(ctx).QueryRow(ctx, query,
		notification.RecipientID,
		notification.TicketID,
		notification.Type,
		notification.Message,
		notification.ActorID,
	).Scan(&notification.ID, &notification.IsRead, &notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `
        SELECT id, recipient_id, ticket_id, type, message, actor_id, is_read, created_at
        FROM ticket_notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND is_read=FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pg.Querier(ctx).Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.RecipientID,
			&notification.TicketID,
			&notification.Type,
			&notification.Message,
			&notification.ActorID,
			&notification.IsRead,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	const query = `
        UPDATE ticket_notifications SET is_read=TRUE
        WHERE recipient_id=$1 AND is_read=FALSE`
	cmd, err := r.pg.Querier(ctx).Exec(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	const query = `
        SELECT COUNT(*) FROM ticket_notifications
        WHERE recipient_id=$1 AND is_read=FALSE`
	var count int64
	err := r.pg.Querier(ctx).QueryRow(ctx, query, recipientID).Scan(&count)
	return count, err
}
