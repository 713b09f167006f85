package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusInReview   TicketStatus = "in_review"
	TicketStatusTesting    TicketStatus = "testing"
	TicketStatusDone       TicketStatus = "done"
)

// StatusColumns lists the board columns in workflow order.
var StatusColumns = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusInReview,
	TicketStatusTesting,
	TicketStatusDone,
}

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch TicketStatus(raw) {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusInReview, TicketStatusTesting, TicketStatusDone:
		return TicketStatus(raw), nil
	}
	return "", fmt.Errorf("invalid ticket status %q", raw)
}

// Label returns the human-facing status name, underscores replaced.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusInProgress:
		return "in progress"
	case TicketStatusInReview:
		return "in review"
	default:
		return string(s)
	}
}

// TicketType differentiates the kind of work a ticket tracks.
type TicketType string

const (
	TicketTypeBug            TicketType = "bug"
	TicketTypeFeatureRequest TicketType = "feature_request"
	TicketTypeIssue          TicketType = "issue"
)

// ParseTicketType validates a raw type value.
func ParseTicketType(raw string) (TicketType, error) {
	switch TicketType(raw) {
	case TicketTypeBug, TicketTypeFeatureRequest, TicketTypeIssue:
		return TicketType(raw), nil
	}
	return "", fmt.Errorf("invalid ticket type %q", raw)
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ParseTicketPriority validates a raw priority value.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	switch TicketPriority(raw) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return TicketPriority(raw), nil
	}
	return "", fmt.Errorf("invalid ticket priority %q", raw)
}

// Ticket is the aggregate for tracked issues, features and bugs.
// Number is workspace scoped, human facing, and strictly increasing.
type Ticket struct {
	ID          string
	Number      int64
	Title       string
	Description *string
	Type        TicketType
	Priority    TicketPriority
	Status      TicketStatus
	CreatorID   *string
	AssigneeID  *string
	ReviewerID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}
