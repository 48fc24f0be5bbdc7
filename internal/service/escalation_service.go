package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/events"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
)

// EscalationService evaluates a policy's escalation rules against a ticket
// and executes the configured action for every rule that fires.
//
// Rules carry no de-duplication marker: a rule past its trigger threshold
// fires again on every evaluation until the underlying event occurs.
type EscalationService struct {
	tickets    repository.TicketRepository
	policies   repository.PolicyRepository
	teams      repository.TeamRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	TicketRepo repository.TicketRepository
	PolicyRepo repository.PolicyRepository
	TeamRepo   repository.TeamRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		tickets:    deps.TicketRepo,
		policies:   deps.PolicyRepo,
		teams:      deps.TeamRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Evaluate checks every active rule of the ticket's policy. Each fired rule
// yields an alert and has its action executed. A ticket without a policy is
// a no-op.
func (s *EscalationService) Evaluate(ctx context.Context, ticket *domain.Ticket) ([]domain.BreachAlert, error) {
	if ticket.SlaPolicyID == nil {
		return nil, nil
	}

	policy, err := s.policies.GetByID(ctx, *ticket.SlaPolicyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("escalation skipped, policy missing",
				zap.String("ticket_number", ticket.Number),
				zap.String("policy_id", *ticket.SlaPolicyID))
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	var alerts []domain.BreachAlert

	for i := range policy.Escalations {
		rule := &policy.Escalations[i]
		if !rule.Active {
			continue
		}
		alert, fired := evaluateRule(ticket, rule, now)
		if !fired {
			continue
		}
		s.executeAction(ctx, ticket, rule)
		s.publishAlert(ctx, ticket, rule, alert)
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// ProcessEscalations evaluates a batch of tickets. One ticket's failure is
// logged and never aborts the rest of the batch.
func (s *EscalationService) ProcessEscalations(ctx context.Context, tickets []domain.Ticket) []domain.BreachAlert {
	var all []domain.BreachAlert
	for i := range tickets {
		alerts, err := s.Evaluate(ctx, &tickets[i])
		if err != nil {
			s.logger.Error("escalation evaluation failed",
				zap.String("ticket_id", tickets[i].ID),
				zap.Error(err))
			continue
		}
		all = append(all, alerts...)
	}
	return all
}

// evaluateRule is the pure firing decision: the rule's event must not have
// occurred, its due date must be set, and the minutes until breach must be
// at or under the trigger threshold. MinutesUntilBreach goes negative once
// the due date has passed.
func evaluateRule(ticket *domain.Ticket, rule *domain.EscalationRule, now time.Time) (domain.BreachAlert, bool) {
	var dueAt *time.Time

	switch rule.Type {
	case domain.EscalationFirstResponse:
		if ticket.FirstResponseAt != nil || ticket.FirstResponseDueAt == nil {
			return domain.BreachAlert{}, false
		}
		dueAt = ticket.FirstResponseDueAt
	case domain.EscalationResolution:
		if ticket.ResolvedAt != nil || ticket.ResolutionDueAt == nil {
			return domain.BreachAlert{}, false
		}
		dueAt = ticket.ResolutionDueAt
	default:
		return domain.BreachAlert{}, false
	}

	minutesUntilBreach := int(dueAt.Sub(now) / time.Minute)
	if minutesUntilBreach > rule.TriggerMinutesBefore {
		return domain.BreachAlert{}, false
	}

	return domain.BreachAlert{
		TicketID:           ticket.ID,
		TicketNumber:       ticket.Number,
		Subject:            ticket.Subject,
		BreachType:         rule.Type,
		DueAt:              *dueAt,
		MinutesUntilBreach: minutesUntilBreach,
		Breached:           minutesUntilBreach <= 0,
		EscalationID:       rule.ID,
		EscalationName:     rule.Name,
		Action:             rule.Action,
		AlertTime:          now,
	}, true
}

// executeAction dispatches on the rule's action kind. The switch is
// exhaustive over the known kinds; an unknown kind is logged and skipped.
func (s *EscalationService) executeAction(ctx context.Context, ticket *domain.Ticket, rule *domain.EscalationRule) {
	switch rule.Action {
	case domain.ActionNotifyEmail, domain.ActionNotifySlack:
		// Delivery belongs to the notification collaborator; the alert event
		// published after execution carries the notify targets.
	case domain.ActionReassignTicket:
		s.reassignTicket(ctx, ticket, rule)
	case domain.ActionEscalateManager:
		s.escalateToManager(ctx, ticket, rule)
	case domain.ActionIncreasePriority:
		s.increasePriority(ctx, ticket)
	default:
		s.logger.Warn("unknown escalation action",
			zap.String("action", string(rule.Action)),
			zap.String("escalation_id", rule.ID))
		return
	}

	s.logger.Info("executed escalation action",
		zap.String("action", string(rule.Action)),
		zap.String("ticket_number", ticket.Number))
}

func (s *EscalationService) reassignTicket(ctx context.Context, ticket *domain.Ticket, rule *domain.EscalationRule) {
	if rule.ReassignToID == nil {
		return
	}
	s.assign(ctx, ticket, *rule.ReassignToID, fmt.Sprintf("escalation %s", rule.Name))
}

func (s *EscalationService) escalateToManager(ctx context.Context, ticket *domain.Ticket, rule *domain.EscalationRule) {
	if ticket.TeamID == nil {
		s.logger.Warn("cannot escalate to manager, ticket has no team",
			zap.String("ticket_number", ticket.Number))
		return
	}
	team, err := s.teams.GetByID(ctx, *ticket.TeamID)
	if err != nil || team.ManagerID == nil {
		s.logger.Warn("cannot escalate to manager, team has no manager",
			zap.String("ticket_number", ticket.Number),
			zap.String("team_id", *ticket.TeamID))
		return
	}
	s.assign(ctx, ticket, *team.ManagerID, fmt.Sprintf("manager escalation %s", rule.Name))
}

func (s *EscalationService) assign(ctx context.Context, ticket *domain.Ticket, userID, reason string) {
	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = &userID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		ticket.AssigneeID = oldAssignee
		s.logger.Error("reassignment write failed",
			zap.String("ticket_number", ticket.Number), zap.Error(err))
		return
	}

	s.publish(ctx, events.EventTicketReassigned, ticket.ID, events.TicketReassignedPayload{
		TicketNumber:  ticket.Number,
		OldAssigneeID: oldAssignee,
		NewAssigneeID: userID,
		Reason:        reason,
	})
	s.logger.Info("ticket reassigned",
		zap.String("ticket_number", ticket.Number),
		zap.String("assignee_id", userID),
		zap.String("reason", reason))
}

func (s *EscalationService) increasePriority(ctx context.Context, ticket *domain.Ticket) {
	next, ok := domain.NextPriority(ticket.Priority)
	if !ok {
		// Already at the top of the scale; no write.
		return
	}

	old := ticket.Priority
	ticket.Priority = next
	if err := s.tickets.Update(ctx, ticket); err != nil {
		ticket.Priority = old
		s.logger.Error("priority bump write failed",
			zap.String("ticket_number", ticket.Number), zap.Error(err))
		return
	}

	s.publish(ctx, events.EventPriorityIncreased, ticket.ID, events.PriorityIncreasedPayload{
		TicketNumber: ticket.Number,
		OldPriority:  old,
		NewPriority:  next,
	})
	s.logger.Info("ticket priority increased",
		zap.String("ticket_number", ticket.Number),
		zap.String("priority", string(next)))
}

func (s *EscalationService) publishAlert(ctx context.Context, ticket *domain.Ticket, rule *domain.EscalationRule, alert domain.BreachAlert) {
	s.publish(ctx, events.EventEscalationTriggered, ticket.ID, events.EscalationTriggeredPayload{
		Alert:         alert,
		NotifyUserIDs: rule.NotifyUserIDs,
	})
}

func (s *EscalationService) publish(ctx context.Context, eventType events.EventType, ticketID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReferenceType: events.ReferenceTypeTicket,
		TicketID:      ticketID,
		Timestamp:     s.now(),
		Payload:       payload,
	})
}
