package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusReopened   TicketStatus = "REOPENED"
	TicketStatusOnHold     TicketStatus = "ON_HOLD"
)

// TicketPriority enumerates SLA urgency, lowest to highest.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityUrgent   TicketPriority = "URGENT"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// ActiveStatuses are the states in which a ticket still accrues SLA time.
var ActiveStatuses = map[TicketStatus]bool{
	TicketStatusNew:        true,
	TicketStatusOpen:       true,
	TicketStatusInProgress: true,
	TicketStatusPending:    true,
	TicketStatusReopened:   true,
}

// PausedStatuses are the states in which the SLA clock is stopped.
var PausedStatuses = map[TicketStatus]bool{
	TicketStatusPending: true,
	TicketStatusOnHold:  true,
}

// IsResolvedStatus reports whether the resolution event has occurred.
func IsResolvedStatus(status TicketStatus) bool {
	return status == TicketStatusResolved || status == TicketStatusClosed
}

// NextPriority returns the priority one step up the scale. The second return
// is false when the priority is already at the top (or unknown).
func NextPriority(p TicketPriority) (TicketPriority, bool) {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityMedium, true
	case TicketPriorityMedium:
		return TicketPriorityHigh, true
	case TicketPriorityHigh:
		return TicketPriorityUrgent, true
	case TicketPriorityUrgent:
		return TicketPriorityCritical, true
	default:
		return p, false
	}
}

// Ticket is the SLA-relevant view of a support request. Associations are held
// by identifier; repositories provide the lookups.
type Ticket struct {
	ID         string
	Number     string
	Subject    string
	ProjectID  string
	TeamID     *string
	AssigneeID *string
	Status     TicketStatus
	Priority   TicketPriority
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time

	FirstResponseAt *time.Time

	SlaPolicyID           *string
	FirstResponseDueAt    *time.Time
	ResolutionDueAt       *time.Time
	FirstResponseBreached bool
	ResolutionBreached    bool
	SlaPausedAt           *time.Time
	SlaPausedMinutes      int
}
