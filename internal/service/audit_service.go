package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/config"
	"github.com/spec-kit/attendance-service/internal/events"
)

// AuditService is the security-event sink: it receives failed logins, replay
// attempts and permission denials from the dispatcher and forwards them.
// Fire-and-forget: a sink failure never affects the request path.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to security and attendance events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleSecurityEvent)
	a.dispatcher.Subscribe(events.EventRefreshReplayed, a.handleSecurityEvent)
	a.dispatcher.Subscribe(events.EventPermissionDenied, a.handleSecurityEvent)
	a.dispatcher.Subscribe(events.EventRateLimitExceeded, a.handleSecurityEvent)
	a.dispatcher.Subscribe(events.EventRoleDrift, a.handleSecurityEvent)
	a.dispatcher.Subscribe(events.EventCheckedIn, a.handleAttendanceEvent)
	a.dispatcher.Subscribe(events.EventCheckedOut, a.handleAttendanceEvent)
}

func (a *AuditService) handleSecurityEvent(ctx context.Context, event events.Event) error {
	a.logger.Warn("security event",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	a.sendEmailStub(ctx, event)
	return nil
}

func (a *AuditService) handleAttendanceEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("attendance event",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}

func (a *AuditService) sendEmailStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.EmailFrom) == "" {
		return
	}
	a.logger.Debug("sendEmailStub",
		zap.String("from", a.cfg.EmailFrom),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}
