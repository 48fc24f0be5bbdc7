package domain

import "time"

// Team groups agents and carries the manager escalations are routed to.
type Team struct {
	ID        string
	Name      string
	ManagerID *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
