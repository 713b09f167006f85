package dto

import (
	"encoding/json"
	"time"

	"github.com/nucleushq/ticket-engine/internal/domain"
)

// CreateTicketRequest payload. Type and priority fall back to bug/medium
// when omitted.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Type        string  `json:"type"`
	Priority    string  `json:"priority"`
	AssigneeID  *string `json:"assignee_id"`
}

// UpdateTicketRequest is a partial update. assignee_id and reviewer_id
// accept an explicit null to clear the slot; absent fields stay untouched.
// expected_updated_at, when present, rejects the update if the ticket
// changed since the client last read it.
type UpdateTicketRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Type              *string    `json:"type"`
	Priority          *string    `json:"priority"`
	Status            *string    `json:"status"`
	AssigneeID        OptionalID `json:"assignee_id"`
	ReviewerID        OptionalID `json:"reviewer_id"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at"`
}

// OptionalID distinguishes "field absent" from "field set to null".
type OptionalID struct {
	Set   bool
	Value *string
}

// UnmarshalJSON marks the field present; a JSON null leaves Value nil.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

// TicketResponse mirrors one ticket.
type TicketResponse struct {
	ID          string     `json:"id"`
	Number      int64      `json:"number"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatorID   *string    `json:"creator_id"`
	AssigneeID  *string    `json:"assignee_id"`
	ReviewerID  *string    `json:"reviewer_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Title:       ticket.Title,
		Description: ticket.Description,
		Type:        string(ticket.Type),
		Priority:    string(ticket.Priority),
		Status:      string(ticket.Status),
		CreatorID:   ticket.CreatorID,
		AssigneeID:  ticket.AssigneeID,
		ReviewerID:  ticket.ReviewerID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ResolvedAt:  ticket.ResolvedAt,
	}
}

// BoardColumnResponse is one bucket of the board view.
type BoardColumnResponse struct {
	Status  string           `json:"status"`
	Tickets []TicketResponse `json:"tickets"`
}

// ActivityEntryResponse is one audit row plus its rendered summary.
type ActivityEntryResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	ActorID   *string   `json:"actor_id"`
	Action    string    `json:"action"`
	FromValue *string   `json:"from_value"`
	ToValue   *string   `json:"to_value"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// NewActivityEntryResponse maps a domain entry.
func NewActivityEntryResponse(entry domain.ActivityEntry) ActivityEntryResponse {
	return ActivityEntryResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		ActorID:   entry.ActorID,
		Action:    string(entry.Action),
		FromValue: entry.FromValue,
		ToValue:   entry.ToValue,
		Summary:   entry.Describe(),
		CreatedAt: entry.CreatedAt,
	}
}
