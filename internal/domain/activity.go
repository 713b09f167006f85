package domain

import (
	"fmt"
	"time"
)

// ActivityAction captures what kind of mutation an entry records.
type ActivityAction string

const (
	ActivityCreated         ActivityAction = "created"
	ActivityStatusChanged   ActivityAction = "status_changed"
	ActivityAssigned        ActivityAction = "assigned"
	ActivityPriorityChanged ActivityAction = "priority_changed"
	ActivityCommented       ActivityAction = "commented"
)

// ActivityEntry is an immutable audit-log row describing a single observed
// mutation of a ticket. Entries are never updated or deleted; their total
// order is created_at ascending with the sequence id breaking ties.
type ActivityEntry struct {
	ID        string
	Seq       int64
	TicketID  string
	ActorID   *string
	Action    ActivityAction
	FromValue *string
	ToValue   *string
	CreatedAt time.Time
}

// Describe renders the entry for history views.
func (e ActivityEntry) Describe() string {
	switch e.Action {
	case ActivityCreated:
		return "created this ticket"
	case ActivityStatusChanged:
		return fmt.Sprintf("changed status from %s to %s", deref(e.FromValue), deref(e.ToValue))
	case ActivityAssigned:
		if e.ToValue == nil {
			return "unassigned this ticket"
		}
		return "assigned this ticket"
	case ActivityPriorityChanged:
		return fmt.Sprintf("changed priority from %s to %s", deref(e.FromValue), deref(e.ToValue))
	case ActivityCommented:
		return "added a comment"
	}
	return string(e.Action)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
