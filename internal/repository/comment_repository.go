package repository

import (
	"context"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/persistence"
)

// CommentRepository stores immutable ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pg *persistence.Postgres
}

// NewCommentRepository builds repository.
func NewCommentRepository(pg *persistence.Postgres) CommentRepository {
	return &commentRepository{pg: pg}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, content, mentions)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	mentions := comment.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return r.pg.Querier(ctx).QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		mentions,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_id, content, mentions, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pg.Querier(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Content,
			&comment.Mentions,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
