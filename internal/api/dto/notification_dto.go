package dto

import (
	"time"

	"github.com/nucleushq/ticket-engine/internal/domain"
)

// NotificationResponse mirrors one notification.
type NotificationResponse struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	TicketID    string    `json:"ticket_id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	ActorID     *string   `json:"actor_id"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewNotificationResponse maps a domain notification.
func NewNotificationResponse(notification domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          notification.ID,
		RecipientID: notification.RecipientID,
		TicketID:    notification.TicketID,
		Type:        string(notification.Type),
		Message:     notification.Message,
		ActorID:     notification.ActorID,
		IsRead:      notification.IsRead,
		CreatedAt:   notification.CreatedAt,
	}
}
