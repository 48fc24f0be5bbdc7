package dto

import (
	"time"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

// PolicySummary response.
type PolicySummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsDefault   bool     `json:"is_default"`
	Active      bool     `json:"active"`
	CalendarID  *string  `json:"calendar_id"`
	ProjectIDs  []string `json:"project_ids"`
}

// PolicyDetailResponse provides full policy configuration.
type PolicyDetailResponse struct {
	PolicySummary
	Targets     []PriorityTargetResponse `json:"targets"`
	Escalations []EscalationResponse     `json:"escalations"`
}

// PriorityTargetResponse represents one per-priority minute budget.
type PriorityTargetResponse struct {
	Priority             domain.TicketPriority `json:"priority"`
	FirstResponseMinutes *int                  `json:"first_response_minutes"`
	ResolutionMinutes    *int                  `json:"resolution_minutes"`
	FirstResponseEnabled bool                  `json:"first_response_enabled"`
	ResolutionEnabled    bool                  `json:"resolution_enabled"`
}

// EscalationResponse represents one escalation rule.
type EscalationResponse struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	Type                 domain.EscalationType   `json:"type"`
	TriggerMinutesBefore int                     `json:"trigger_minutes_before"`
	Action               domain.EscalationAction `json:"action"`
	NotifyUserIDs        []string                `json:"notify_user_ids"`
	ReassignToID         *string                 `json:"reassign_to_id"`
	Active               bool                    `json:"active"`
}

// CalendarResponse represents a business calendar with its holidays.
type CalendarResponse struct {
	ID       string                       `json:"id"`
	Name     string                       `json:"name"`
	Timezone string                       `json:"timezone"`
	Schedule map[string]domain.TimeWindow `json:"schedule"`
	Holidays []HolidayResponse            `json:"holidays"`
}

// HolidayResponse represents one holiday exception.
type HolidayResponse struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Recurring bool      `json:"recurring"`
}

// TicketSlaResponse is the SLA view of a ticket for the breach listings.
type TicketSlaResponse struct {
	ID                    string                `json:"id"`
	Number                string                `json:"number"`
	Subject               string                `json:"subject"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	FirstResponseDueAt    *time.Time            `json:"first_response_due_at"`
	ResolutionDueAt       *time.Time            `json:"resolution_due_at"`
	FirstResponseBreached bool                  `json:"first_response_breached"`
	ResolutionBreached    bool                  `json:"resolution_breached"`
	SlaPausedAt           *time.Time            `json:"sla_paused_at,omitempty"`
}
