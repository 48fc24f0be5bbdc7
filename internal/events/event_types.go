package events

import (
	"time"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSlaBreachDetected   EventType = "sla_breach_detected"
	EventSlaPaused           EventType = "sla_paused"
	EventSlaResumed          EventType = "sla_resumed"
	EventEscalationTriggered EventType = "escalation_triggered"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventPriorityIncreased   EventType = "priority_increased"
)

// ReferenceTypeTicket keys notifications to the ticket they concern.
const ReferenceTypeTicket = "TICKET"

// Event represents a domain event emitted by the SLA services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	ReferenceType string      `json:"reference_type"`
	TicketID      string      `json:"ticket_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// SlaBreachDetectedPayload payload.
type SlaBreachDetectedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	BreachType   domain.EscalationType `json:"breach_type"`
	DueAt        time.Time             `json:"due_at"`
}

// SlaPausedPayload payload.
type SlaPausedPayload struct {
	TicketNumber string    `json:"ticket_number"`
	PausedAt     time.Time `json:"paused_at"`
}

// SlaResumedPayload payload.
type SlaResumedPayload struct {
	TicketNumber       string `json:"ticket_number"`
	PausedMinutes      int    `json:"paused_minutes"`
	TotalPausedMinutes int    `json:"total_paused_minutes"`
}

// EscalationTriggeredPayload carries the alert plus its notify targets.
type EscalationTriggeredPayload struct {
	Alert         domain.BreachAlert `json:"alert"`
	NotifyUserIDs []string           `json:"notify_user_ids,omitempty"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	TicketNumber  string  `json:"ticket_number"`
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID string  `json:"new_assignee_id"`
	Reason        string  `json:"reason"`
}

// PriorityIncreasedPayload payload.
type PriorityIncreasedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	OldPriority  domain.TicketPriority `json:"old_priority"`
	NewPriority  domain.TicketPriority `json:"new_priority"`
}
