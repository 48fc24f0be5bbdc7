package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/events"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
)

// MetricsCache stores the computed fleet snapshot between poll cycles.
type MetricsCache interface {
	Get(ctx context.Context) (*domain.SlaMetrics, bool)
	Set(ctx context.Context, metrics *domain.SlaMetrics)
}

// MonitorService derives SLA compliance state, maintains the sticky breach
// latches and the pause clock, and aggregates fleet metrics.
type MonitorService struct {
	tickets    repository.TicketRepository
	resolver   *PolicyService
	dispatcher events.Dispatcher
	cache      MetricsCache
	logger     *zap.Logger

	warningThreshold float64
	now              func() time.Time
}

// MonitorDependencies bundles collaborators.
type MonitorDependencies struct {
	TicketRepo repository.TicketRepository
	Resolver   *PolicyService
	Dispatcher events.Dispatcher
	Cache      MetricsCache
	Logger     *zap.Logger
	// WarningThreshold is the elapsed fraction of a window that flips the
	// status to WARNING. Zero selects the default of 0.8.
	WarningThreshold float64
}

// NewMonitorService creates the service.
func NewMonitorService(deps MonitorDependencies) *MonitorService {
	threshold := deps.WarningThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.8
	}
	return &MonitorService{
		tickets:          deps.TicketRepo,
		resolver:         deps.Resolver,
		dispatcher:       deps.Dispatcher,
		cache:            deps.Cache,
		logger:           deps.Logger,
		warningThreshold: threshold,
		now:              time.Now,
	}
}

// CheckTicketSla derives the current compliance status, re-evaluated fresh on
// every call. Precedence: NOT_APPLICABLE, PAUSED, BREACHED, WARNING, ON_TRACK.
func (s *MonitorService) CheckTicketSla(ticket *domain.Ticket) domain.SlaStatus {
	if ticket.SlaPolicyID == nil {
		return domain.SlaStatusNotApplicable
	}

	if domain.PausedStatuses[ticket.Status] && ticket.SlaPausedAt != nil {
		return domain.SlaStatusPaused
	}

	now := s.now()

	if ticket.FirstResponseAt == nil && ticket.FirstResponseDueAt != nil {
		if ticket.FirstResponseBreached || now.After(*ticket.FirstResponseDueAt) {
			return domain.SlaStatusBreached
		}
		if s.approachingBreach(now, ticket.CreatedAt, *ticket.FirstResponseDueAt) {
			return domain.SlaStatusWarning
		}
	}

	if !domain.IsResolvedStatus(ticket.Status) && ticket.ResolutionDueAt != nil {
		if ticket.ResolutionBreached || now.After(*ticket.ResolutionDueAt) {
			return domain.SlaStatusBreached
		}
		if s.approachingBreach(now, ticket.CreatedAt, *ticket.ResolutionDueAt) {
			return domain.SlaStatusWarning
		}
	}

	return domain.SlaStatusOnTrack
}

// UpdateSlaMetrics assigns a policy (and due dates) to a ticket that has
// none, then latches any breach whose due instant has passed. Latches are
// one-way: they are set here and never cleared.
func (s *MonitorService) UpdateSlaMetrics(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.SlaPolicyID == nil {
		policy, err := s.resolver.ResolveFor(ctx, ticket)
		if err != nil {
			return err
		}
		if policy == nil {
			return nil
		}
		s.resolver.InitializeDueDates(ctx, ticket, policy)
	}

	now := s.now()

	if ticket.FirstResponseAt == nil &&
		ticket.FirstResponseDueAt != nil &&
		!ticket.FirstResponseBreached &&
		now.After(*ticket.FirstResponseDueAt) {
		ticket.FirstResponseBreached = true
		s.publishBreach(ctx, ticket, domain.EscalationFirstResponse, *ticket.FirstResponseDueAt)
	}

	if !domain.IsResolvedStatus(ticket.Status) &&
		ticket.ResolutionDueAt != nil &&
		!ticket.ResolutionBreached &&
		now.After(*ticket.ResolutionDueAt) {
		ticket.ResolutionBreached = true
		s.publishBreach(ctx, ticket, domain.EscalationResolution, *ticket.ResolutionDueAt)
	}

	return s.tickets.Update(ctx, ticket)
}

// PauseSla stops the SLA clock. No-op when the ticket has no policy or is
// already paused.
func (s *MonitorService) PauseSla(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.SlaPolicyID == nil || ticket.SlaPausedAt != nil {
		return nil
	}
	now := s.now()
	ticket.SlaPausedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	s.publish(ctx, events.EventSlaPaused, ticket.ID, events.SlaPausedPayload{
		TicketNumber: ticket.Number,
		PausedAt:     now,
	})
	s.logger.Info("sla paused", zap.String("ticket_number", ticket.Number))
	return nil
}

// ResumeSla restarts the SLA clock and extends every still-open due date by
// the paused duration, so paused time never counts against the ticket.
func (s *MonitorService) ResumeSla(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.SlaPolicyID == nil || ticket.SlaPausedAt == nil {
		return nil
	}

	pausedMinutes := int(s.now().Sub(*ticket.SlaPausedAt) / time.Minute)
	if pausedMinutes < 0 {
		pausedMinutes = 0
	}
	ticket.SlaPausedMinutes += pausedMinutes
	ticket.SlaPausedAt = nil

	extension := time.Duration(pausedMinutes) * time.Minute
	if ticket.FirstResponseDueAt != nil && ticket.FirstResponseAt == nil {
		extended := ticket.FirstResponseDueAt.Add(extension)
		ticket.FirstResponseDueAt = &extended
	}
	if ticket.ResolutionDueAt != nil {
		extended := ticket.ResolutionDueAt.Add(extension)
		ticket.ResolutionDueAt = &extended
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	s.publish(ctx, events.EventSlaResumed, ticket.ID, events.SlaResumedPayload{
		TicketNumber:       ticket.Number,
		PausedMinutes:      pausedMinutes,
		TotalPausedMinutes: ticket.SlaPausedMinutes,
	})
	s.logger.Info("sla resumed",
		zap.String("ticket_number", ticket.Number),
		zap.Int("total_paused_minutes", ticket.SlaPausedMinutes))
	return nil
}

// TicketsApproachingBreach returns active tickets whose unmet due date falls
// within the next windowMinutes.
func (s *MonitorService) TicketsApproachingBreach(ctx context.Context, windowMinutes int) ([]domain.Ticket, error) {
	threshold := s.now().Add(time.Duration(windowMinutes) * time.Minute)
	return s.tickets.ListApproachingBreach(ctx, threshold)
}

// BreachedTickets returns active tickets with a latched breach.
func (s *MonitorService) BreachedTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListBreached(ctx)
}

// GetSlaMetrics aggregates the fleet snapshot, serving a cached copy when one
// is fresh. Zero-denominator compliance rates report 100% by convention.
func (s *MonitorService) GetSlaMetrics(ctx context.Context) (*domain.SlaMetrics, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return cached, nil
		}
	}

	tickets, err := s.tickets.ListWithPolicy(ctx)
	if err != nil {
		return nil, err
	}

	var metrics domain.SlaMetrics
	var (
		firstResponseCompliant int64
		firstResponseTotal     int64
		resolutionCompliant    int64
		resolutionTotal        int64
		firstResponseMinutes   int64
		firstResponseCount     int64
		resolutionMinutes      int64
		resolutionCount        int64
	)

	for i := range tickets {
		ticket := &tickets[i]
		metrics.TotalTicketsWithSla++

		switch s.CheckTicketSla(ticket) {
		case domain.SlaStatusOnTrack:
			metrics.TicketsOnTrack++
		case domain.SlaStatusWarning:
			metrics.TicketsInWarning++
		case domain.SlaStatusBreached:
			metrics.TicketsBreached++
		}

		if ticket.FirstResponseDueAt != nil {
			firstResponseTotal++
			if !ticket.FirstResponseBreached &&
				(ticket.FirstResponseAt == nil || !ticket.FirstResponseAt.After(*ticket.FirstResponseDueAt)) {
				firstResponseCompliant++
			}
			if ticket.FirstResponseAt != nil {
				firstResponseMinutes += int64(ticket.FirstResponseAt.Sub(ticket.CreatedAt) / time.Minute)
				firstResponseCount++
			}
		}

		if ticket.ResolutionDueAt != nil {
			resolutionTotal++
			if !ticket.ResolutionBreached &&
				(ticket.ResolvedAt == nil || !ticket.ResolvedAt.After(*ticket.ResolutionDueAt)) {
				resolutionCompliant++
			}
			if ticket.ResolvedAt != nil {
				resolutionMinutes += int64(ticket.ResolvedAt.Sub(ticket.CreatedAt) / time.Minute)
				resolutionCount++
			}
		}
	}

	metrics.FirstResponseComplianceRate = complianceRate(firstResponseCompliant, firstResponseTotal)
	metrics.ResolutionComplianceRate = complianceRate(resolutionCompliant, resolutionTotal)
	metrics.OverallComplianceRate = (metrics.FirstResponseComplianceRate + metrics.ResolutionComplianceRate) / 2
	if firstResponseCount > 0 {
		metrics.AverageFirstResponseMinutes = firstResponseMinutes / firstResponseCount
	}
	if resolutionCount > 0 {
		metrics.AverageResolutionMinutes = resolutionMinutes / resolutionCount
	}

	if s.cache != nil {
		s.cache.Set(ctx, &metrics)
	}
	return &metrics, nil
}

func complianceRate(compliant, total int64) float64 {
	if total == 0 {
		return 100
	}
	return float64(compliant) / float64(total) * 100
}

// approachingBreach checks whether the elapsed fraction of the window has
// crossed the warning threshold.
func (s *MonitorService) approachingBreach(now, start, due time.Time) bool {
	totalMinutes := due.Sub(start) / time.Minute
	if totalMinutes <= 0 {
		return false
	}
	elapsedMinutes := now.Sub(start) / time.Minute
	return float64(elapsedMinutes) >= float64(totalMinutes)*s.warningThreshold
}

func (s *MonitorService) publishBreach(ctx context.Context, ticket *domain.Ticket, breachType domain.EscalationType, dueAt time.Time) {
	s.logger.Warn("sla breached",
		zap.String("ticket_number", ticket.Number),
		zap.String("breach_type", string(breachType)))
	s.publish(ctx, events.EventSlaBreachDetected, ticket.ID, events.SlaBreachDetectedPayload{
		TicketNumber: ticket.Number,
		BreachType:   breachType,
		DueAt:        dueAt,
	})
}

func (s *MonitorService) publish(ctx context.Context, eventType events.EventType, ticketID string, payload interface{}) {
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
