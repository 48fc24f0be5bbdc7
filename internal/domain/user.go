package domain

import "time"

// User is the subset of the account record the SLA engine touches: escalation
// notify targets, reassignment targets and team managers.
type User struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
