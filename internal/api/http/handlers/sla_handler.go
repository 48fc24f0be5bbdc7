package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/greenwhite/servicedesk-sla/internal/api/dto"
	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
	"github.com/greenwhite/servicedesk-sla/internal/service"
	apperrors "github.com/greenwhite/servicedesk-sla/pkg/util"
)

// SlaHandler exposes the read-only SLA configuration and metrics surface.
type SlaHandler struct {
	policies       repository.PolicyRepository
	calendars      repository.CalendarRepository
	monitor        *service.MonitorService
	approachWindow int
}

// NewSlaHandler constructs handler. approachWindowMinutes is the default
// horizon for the approaching-breach listing.
func NewSlaHandler(policies repository.PolicyRepository, calendars repository.CalendarRepository, monitor *service.MonitorService, approachWindowMinutes int) *SlaHandler {
	if approachWindowMinutes <= 0 {
		approachWindowMinutes = 60
	}
	return &SlaHandler{
		policies:       policies,
		calendars:      calendars,
		monitor:        monitor,
		approachWindow: approachWindowMinutes,
	}
}

// ListPolicies GET /api/v1/sla/policies.
func (h *SlaHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.policies.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	summaries := make([]dto.PolicySummary, 0, len(policies))
	for i := range policies {
		summaries = append(summaries, policySummary(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// GetPolicy GET /api/v1/sla/policies/:id.
func (h *SlaHandler) GetPolicy(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return apperrors.NewValidationError("policy id required", nil)
	}
	policy, err := h.policies.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("sla policy", map[string]any{"policy_id": id})
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": policyDetail(policy)})
}

// ListCalendars GET /api/v1/sla/calendars.
func (h *SlaHandler) ListCalendars(c *fiber.Ctx) error {
	calendars, err := h.calendars.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	responses := make([]dto.CalendarResponse, 0, len(calendars))
	for i := range calendars {
		responses = append(responses, calendarResponse(&calendars[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// GetMetrics GET /api/v1/sla/metrics.
func (h *SlaHandler) GetMetrics(c *fiber.Ctx) error {
	metrics, err := h.monitor.GetSlaMetrics(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": metrics})
}

// ListBreaches GET /api/v1/sla/breaches.
func (h *SlaHandler) ListBreaches(c *fiber.Ctx) error {
	tickets, err := h.monitor.BreachedTickets(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": ticketSlaResponses(tickets)})
}

// ListApproaching GET /api/v1/sla/approaching?window_minutes=60.
func (h *SlaHandler) ListApproaching(c *fiber.Ctx) error {
	window := c.QueryInt("window_minutes", h.approachWindow)
	if window <= 0 {
		return apperrors.NewValidationError("window_minutes must be positive", map[string]any{"window_minutes": window})
	}
	tickets, err := h.monitor.TicketsApproachingBreach(c.UserContext(), window)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": ticketSlaResponses(tickets), "window_minutes": window})
}

func ticketSlaResponses(tickets []domain.Ticket) []dto.TicketSlaResponse {
	responses := make([]dto.TicketSlaResponse, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		responses = append(responses, dto.TicketSlaResponse{
			ID:                    t.ID,
			Number:                t.Number,
			Subject:               t.Subject,
			Status:                t.Status,
			Priority:              t.Priority,
			FirstResponseDueAt:    t.FirstResponseDueAt,
			ResolutionDueAt:       t.ResolutionDueAt,
			FirstResponseBreached: t.FirstResponseBreached,
			ResolutionBreached:    t.ResolutionBreached,
			SlaPausedAt:           t.SlaPausedAt,
		})
	}
	return responses
}

func policySummary(policy *domain.SlaPolicy) dto.PolicySummary {
	return dto.PolicySummary{
		ID:          policy.ID,
		Name:        policy.Name,
		Description: policy.Description,
		IsDefault:   policy.IsDefault,
		Active:      policy.Active,
		CalendarID:  policy.CalendarID,
		ProjectIDs:  policy.ProjectIDs,
	}
}

func policyDetail(policy *domain.SlaPolicy) dto.PolicyDetailResponse {
	detail := dto.PolicyDetailResponse{PolicySummary: policySummary(policy)}
	for _, t := range policy.Targets {
		detail.Targets = append(detail.Targets, dto.PriorityTargetResponse{
			Priority:             t.Priority,
			FirstResponseMinutes: t.FirstResponseMinutes,
			ResolutionMinutes:    t.ResolutionMinutes,
			FirstResponseEnabled: t.FirstResponseEnabled,
			ResolutionEnabled:    t.ResolutionEnabled,
		})
	}
	for _, e := range policy.Escalations {
		detail.Escalations = append(detail.Escalations, dto.EscalationResponse{
			ID:                   e.ID,
			Name:                 e.Name,
			Type:                 e.Type,
			TriggerMinutesBefore: e.TriggerMinutesBefore,
			Action:               e.Action,
			NotifyUserIDs:        e.NotifyUserIDs,
			ReassignToID:         e.ReassignToID,
			Active:               e.Active,
		})
	}
	return detail
}

func calendarResponse(cal *domain.BusinessCalendar) dto.CalendarResponse {
	response := dto.CalendarResponse{
		ID:       cal.ID,
		Name:     cal.Name,
		Timezone: cal.Timezone,
		Schedule: map[string]domain.TimeWindow{},
	}
	for day, window := range cal.Schedule {
		response.Schedule[strings.ToLower(day.String())] = window
	}
	for _, h := range cal.Holidays {
		response.Holidays = append(response.Holidays, dto.HolidayResponse{
			Name:      h.Name,
			Date:      h.Date.Truncate(24 * time.Hour),
			Recurring: h.Recurring,
		})
	}
	return response
}
