package domain

import "time"

// Comment belongs to exactly one ticket and is immutable once created.
// Mentions holds the employee ids resolved from the content at creation time.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  *string
	Content   string
	Mentions  []string
	CreatedAt time.Time
}
