package dto

import (
	"time"

	"github.com/nucleushq/ticket-engine/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse mirrors one comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  *string   `json:"author_id"`
	Content   string    `json:"content"`
	Mentions  []string  `json:"mentions"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	mentions := comment.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		Mentions:  mentions,
		CreatedAt: comment.CreatedAt,
	}
}
