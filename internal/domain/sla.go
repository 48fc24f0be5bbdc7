package domain

import "time"

// SlaStatus describes where a ticket stands against its SLA targets.
type SlaStatus string

const (
	SlaStatusOnTrack       SlaStatus = "ON_TRACK"
	SlaStatusWarning       SlaStatus = "WARNING"
	SlaStatusBreached      SlaStatus = "BREACHED"
	SlaStatusPaused        SlaStatus = "PAUSED"
	SlaStatusNotApplicable SlaStatus = "NOT_APPLICABLE"
)

// EscalationType selects which SLA target an escalation rule watches.
type EscalationType string

const (
	EscalationFirstResponse EscalationType = "FIRST_RESPONSE"
	EscalationResolution    EscalationType = "RESOLUTION"
)

// EscalationAction enumerates what happens when a rule fires.
type EscalationAction string

const (
	ActionNotifyEmail      EscalationAction = "NOTIFY_EMAIL"
	ActionNotifySlack      EscalationAction = "NOTIFY_SLACK"
	ActionReassignTicket   EscalationAction = "REASSIGN_TICKET"
	ActionEscalateManager  EscalationAction = "ESCALATE_MANAGER"
	ActionIncreasePriority EscalationAction = "INCREASE_PRIORITY"
)

// SlaPolicy groups per-priority targets and escalation rules. At most one
// active policy system-wide may have IsDefault set.
type SlaPolicy struct {
	ID          string
	Name        string
	Description string
	IsDefault   bool
	Active      bool
	CalendarID  *string
	Targets     []PriorityTarget
	Escalations []EscalationRule
	ProjectIDs  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TargetFor returns the priority target configured for the given priority.
// A policy holds at most one target per priority level.
func (p *SlaPolicy) TargetFor(priority TicketPriority) *PriorityTarget {
	for i := range p.Targets {
		if p.Targets[i].Priority == priority {
			return &p.Targets[i]
		}
	}
	return nil
}

// PriorityTarget holds minute budgets for one priority level. A nil minute
// value or a cleared enable flag exempts the ticket from that dimension.
type PriorityTarget struct {
	ID                   string
	PolicyID             string
	Priority             TicketPriority
	FirstResponseMinutes *int
	ResolutionMinutes    *int
	FirstResponseEnabled bool
	ResolutionEnabled    bool
}

// EscalationRule fires an action when a ticket nears or passes a due date.
type EscalationRule struct {
	ID                   string
	PolicyID             string
	Name                 string
	Type                 EscalationType
	TriggerMinutesBefore int
	Action               EscalationAction
	NotifyUserIDs        []string
	ReassignToID         *string
	Active               bool
}

// BreachAlert records one fired escalation rule for a ticket.
type BreachAlert struct {
	TicketID           string           `json:"ticket_id"`
	TicketNumber       string           `json:"ticket_number"`
	Subject            string           `json:"subject"`
	BreachType         EscalationType   `json:"breach_type"`
	DueAt              time.Time        `json:"due_at"`
	MinutesUntilBreach int              `json:"minutes_until_breach"`
	Breached           bool             `json:"breached"`
	EscalationID       string           `json:"escalation_id"`
	EscalationName     string           `json:"escalation_name"`
	Action             EscalationAction `json:"action"`
	AlertTime          time.Time        `json:"alert_time"`
}

// SlaMetrics is the fleet-wide compliance snapshot for dashboards.
type SlaMetrics struct {
	TotalTicketsWithSla         int64   `json:"total_tickets_with_sla"`
	TicketsOnTrack              int64   `json:"tickets_on_track"`
	TicketsInWarning            int64   `json:"tickets_in_warning"`
	TicketsBreached             int64   `json:"tickets_breached"`
	FirstResponseComplianceRate float64 `json:"first_response_compliance_rate"`
	ResolutionComplianceRate    float64 `json:"resolution_compliance_rate"`
	OverallComplianceRate       float64 `json:"overall_compliance_rate"`
	AverageFirstResponseMinutes int64   `json:"average_first_response_minutes"`
	AverageResolutionMinutes    int64   `json:"average_resolution_minutes"`
}
