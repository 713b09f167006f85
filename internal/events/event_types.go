package events

import (
	"time"

	"github.com/nucleushq/ticket-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCommented       EventType = "ticket_commented"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	TicketNumber int64       `json:"ticket_number"`
	ActorID      *string     `json:"actor_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string                `json:"title"`
	Type       domain.TicketType     `json:"ticket_type"`
	Priority   domain.TicketPriority `json:"priority"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload. Field is "assignee" or "reviewer";
// EmployeeID is nil when the field was cleared.
type TicketAssignedPayload struct {
	Field      string  `json:"field"`
	EmployeeID *string `json:"employee_id,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID      string   `json:"comment_id"`
	AuthorID       *string  `json:"author_id,omitempty"`
	MentionedIDs   []string `json:"mentioned_ids,omitempty"`
	ContentPreview string   `json:"content_preview"`
}
