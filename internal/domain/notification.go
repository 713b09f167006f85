package domain

import "time"

// NotificationType enumerates the events that produce notifications.
type NotificationType string

const (
	NotificationAssigned      NotificationType = "assigned"
	NotificationStatusChanged NotificationType = "status_changed"
	NotificationMentioned     NotificationType = "mentioned"
	NotificationCommented     NotificationType = "commented"
)

// Notification is one row per (recipient, triggering event). Created only by
// the dispatcher, mutated only by marking it read.
type Notification struct {
	ID          string
	RecipientID string
	TicketID    string
	Type        NotificationType
	Message     string
	ActorID     *string
	IsRead      bool
	CreatedAt   time.Time
}
