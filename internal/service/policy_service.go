package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
	"github.com/greenwhite/servicedesk-sla/internal/sla"
)

// PolicyService resolves the SLA policy applying to a ticket and seeds its
// due timestamps.
type PolicyService struct {
	policies  repository.PolicyRepository
	calendars repository.CalendarRepository
	logger    *zap.Logger
	now       func() time.Time
}

// PolicyDependencies bundles collaborators.
type PolicyDependencies struct {
	PolicyRepo   repository.PolicyRepository
	CalendarRepo repository.CalendarRepository
	Logger       *zap.Logger
}

// NewPolicyService creates the service.
func NewPolicyService(deps PolicyDependencies) *PolicyService {
	return &PolicyService{
		policies:  deps.PolicyRepo,
		calendars: deps.CalendarRepo,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// ResolveFor picks the policy for a ticket: the first active policy attached
// to the ticket's project, else the active default policy. A nil result with
// a nil error means the ticket carries no SLA.
func (s *PolicyService) ResolveFor(ctx context.Context, ticket *domain.Ticket) (*domain.SlaPolicy, error) {
	if ticket.ProjectID != "" {
		projectPolicies, err := s.policies.FindActiveByProject(ctx, ticket.ProjectID)
		if err != nil {
			return nil, err
		}
		if len(projectPolicies) > 0 {
			return &projectPolicies[0], nil
		}
	}

	defaultPolicy, err := s.policies.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return defaultPolicy, nil
}

// InitializeDueDates computes and stores the due timestamps for the ticket
// from the policy's target for its priority. A missing target or a disabled
// target type leaves the corresponding due field unset.
func (s *PolicyService) InitializeDueDates(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy) {
	if policy == nil {
		return
	}
	ticket.SlaPolicyID = &policy.ID

	target := policy.TargetFor(ticket.Priority)
	if target == nil {
		s.logger.Debug("no priority target configured",
			zap.String("policy_id", policy.ID),
			zap.String("priority", string(ticket.Priority)))
		return
	}

	calendar := s.loadCalendar(ctx, policy)

	createdAt := ticket.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	if target.FirstResponseEnabled && target.FirstResponseMinutes != nil {
		due := sla.CalculateDueDate(createdAt, *target.FirstResponseMinutes, calendar)
		ticket.FirstResponseDueAt = &due
	}
	if target.ResolutionEnabled && target.ResolutionMinutes != nil {
		due := sla.CalculateDueDate(createdAt, *target.ResolutionMinutes, calendar)
		ticket.ResolutionDueAt = &due
	}

	s.logger.Info("sla initialized",
		zap.String("ticket_number", ticket.Number),
		zap.Timep("first_response_due", ticket.FirstResponseDueAt),
		zap.Timep("resolution_due", ticket.ResolutionDueAt))
}

// loadCalendar fetches the policy's calendar. Lookup failures degrade to a
// 24/7 calendar so due dates can always be computed.
func (s *PolicyService) loadCalendar(ctx context.Context, policy *domain.SlaPolicy) *domain.BusinessCalendar {
	if policy.CalendarID == nil {
		return nil
	}
	calendar, err := s.calendars.GetByID(ctx, *policy.CalendarID)
	if err != nil {
		s.logger.Warn("calendar lookup failed, using 24/7",
			zap.String("policy_id", policy.ID),
			zap.String("calendar_id", *policy.CalendarID),
			zap.Error(err))
		return nil
	}
	return calendar
}
