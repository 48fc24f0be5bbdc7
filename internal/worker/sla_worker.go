package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/config"
	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/observability"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
	"github.com/greenwhite/servicedesk-sla/internal/service"
)

// SlaWorker drives the periodic SLA check: every poll interval it enumerates
// active tickets carrying a policy, latches breaches and runs escalations.
// One ticket's failure never aborts the batch.
type SlaWorker struct {
	tickets     repository.TicketRepository
	monitor     *service.MonitorService
	escalations *service.EscalationService
	metrics     *observability.Metrics
	logger      *zap.Logger
	cfg         config.SlaConfig

	running atomic.Bool
}

// NewSlaWorker creates the worker.
func NewSlaWorker(tickets repository.TicketRepository, monitor *service.MonitorService, escalations *service.EscalationService, metrics *observability.Metrics, logger *zap.Logger, cfg config.SlaConfig) *SlaWorker {
	return &SlaWorker{
		tickets:     tickets,
		monitor:     monitor,
		escalations: escalations,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Start launches the poll loop and the hourly report until ctx is cancelled.
func (w *SlaWorker) Start(ctx context.Context) {
	go w.pollLoop(ctx)
	go w.reportLoop(ctx)
}

func (w *SlaWorker) pollLoop(ctx context.Context) {
	interval := w.cfg.PollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("sla worker started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla worker stopped")
			return
		case <-ticker.C:
			w.RunCycle(ctx)
		}
	}
}

// RunCycle executes one poll pass. Exported so operators can trigger an
// immediate pass at startup. A cycle still in flight makes the next tick a
// no-op instead of overlapping it.
func (w *SlaWorker) RunCycle(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Warn("sla cycle still running, skipping tick")
		return
	}
	defer w.running.Store(false)

	tickets, err := w.tickets.ListActiveWithPolicy(ctx)
	if err != nil {
		w.logger.Error("listing active tickets failed", zap.Error(err))
		return
	}

	failed := 0
	alertCount := 0
	for i := range tickets {
		alerts, err := w.processTicket(ctx, &tickets[i])
		if err != nil {
			failed++
			w.logger.Error("sla check failed for ticket",
				zap.String("ticket_id", tickets[i].ID),
				zap.Error(err))
			continue
		}
		alertCount += len(alerts)
	}

	w.metrics.RecordPollCycle(len(tickets), failed)
	w.metrics.RecordAlerts(alertCount)
	if alertCount > 0 || failed > 0 {
		w.logger.Info("sla cycle complete",
			zap.Int("tickets", len(tickets)),
			zap.Int("alerts", alertCount),
			zap.Int("failures", failed))
	}
}

// processTicket isolates one ticket's computation: panics and errors are
// handled at this boundary so the rest of the batch keeps going.
func (w *SlaWorker) processTicket(ctx context.Context, ticket *domain.Ticket) (alerts []domain.BreachAlert, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during sla check: %v", r)
		}
	}()

	wasBreached := ticket.FirstResponseBreached || ticket.ResolutionBreached
	if err := w.monitor.UpdateSlaMetrics(ctx, ticket); err != nil {
		return nil, err
	}
	if !wasBreached && (ticket.FirstResponseBreached || ticket.ResolutionBreached) {
		w.metrics.RecordBreach()
	}

	return w.escalations.Evaluate(ctx, ticket)
}

func (w *SlaWorker) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logReport(ctx)
		}
	}
}

func (w *SlaWorker) logReport(ctx context.Context) {
	metrics, err := w.monitor.GetSlaMetrics(ctx)
	if err != nil {
		w.logger.Error("sla report failed", zap.Error(err))
		return
	}
	w.logger.Info("sla compliance report",
		zap.Int64("total_with_sla", metrics.TotalTicketsWithSla),
		zap.Int64("on_track", metrics.TicketsOnTrack),
		zap.Int64("warning", metrics.TicketsInWarning),
		zap.Int64("breached", metrics.TicketsBreached),
		zap.Float64("first_response_compliance", metrics.FirstResponseComplianceRate),
		zap.Float64("resolution_compliance", metrics.ResolutionComplianceRate),
		zap.Float64("overall_compliance", metrics.OverallComplianceRate),
		zap.Int64("avg_first_response_minutes", metrics.AverageFirstResponseMinutes),
		zap.Int64("avg_resolution_minutes", metrics.AverageResolutionMinutes))
}
