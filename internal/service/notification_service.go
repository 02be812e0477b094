package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService handles emitting notifications for ticket events.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{logger: logger, cfg: cfg}
}

// Handle routes an event to its notification channels.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketCreated:
		n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventTicketAssigned:
		n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventTicketStatusChanged:
		n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventTicketReplyAdded:
		n.logger.Info("TicketReplyAdded", zap.String("ticket_id", event.TicketID), zap.String("actor", event.Actor.Name))
		// internal notes never reach the requester
		if payload, ok := event.Payload.(events.TicketReplyAddedPayload); ok && payload.Internal {
			return nil
		}
		n.sendEmailNotificationStub(ctx, event)
	default:
		n.logger.Debug("ignoring event", zap.String("event_type", string(event.Type)))
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to_user", event.OwnerID),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
