package domain

import "time"

// Employee is a workspace member. The employee directory is maintained
// elsewhere; the engine only reads it for mention resolution, actor
// identification and message rendering.
type Employee struct {
	ID        string
	Name      string
	Email     string
	Role      string
	Active    bool
	CreatedAt time.Time
}
