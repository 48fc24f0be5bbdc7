package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/config"
	"github.com/greenwhite/servicedesk-sla/internal/events"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
)

// NotificationService hands SLA events to the delivery collaborators. Actual
// channel delivery (email/chat/push) lives outside this service; the stubs
// here log what would be sent.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to SLA events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventEscalationTriggered, n.handleEscalationTriggered)
	n.dispatcher.Subscribe(events.EventSlaBreachDetected, n.handleBreachDetected)
	n.dispatcher.Subscribe(events.EventTicketReassigned, n.handleTicketReassigned)
}

func (n *NotificationService) handleEscalationTriggered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationTriggeredPayload)
	if !ok {
		return nil
	}
	n.logger.Info("EscalationTriggered",
		zap.String("reference_type", event.ReferenceType),
		zap.String("ticket_id", event.TicketID),
		zap.String("escalation", payload.Alert.EscalationName),
		zap.Bool("breached", payload.Alert.Breached))

	for _, userID := range payload.NotifyUserIDs {
		n.notifyUser(ctx, userID, event)
	}
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBreachDetected(ctx context.Context, event events.Event) error {
	n.logger.Info("SlaBreachDetected",
		zap.String("reference_type", event.ReferenceType),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketReassigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketReassigned",
		zap.String("reference_type", event.ReferenceType),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) notifyUser(ctx context.Context, userID string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Warn("notify target lookup failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", user.Email),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
