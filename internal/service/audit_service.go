package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/events"
)

// AuditService writes an audit trail of authentication events to the log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor_id", event.Actor.ID),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Time("at", event.Timestamp),
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info("auth event", fields...)
	return nil
}
