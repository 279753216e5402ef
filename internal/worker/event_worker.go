package worker

import (
	"github.com/civicdesk/issue-reporter/internal/events"
	"github.com/civicdesk/issue-reporter/internal/service"
)

// StartEventWorkers registers the audit trail and, when configured, the NATS forwarder.
func StartEventWorkers(dispatcher events.Dispatcher, audit *service.AuditService, forwarder *events.NATSForwarder) {
	if audit != nil {
		audit.RegisterHandlers()
	}
	if forwarder != nil && dispatcher != nil {
		forwarder.Register(dispatcher)
	}
}
