package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

const sessionAuditWriteTimeout = 5 * time.Second

// StartSessionAuditSubscriber persists every session event into the audit log.
// The returned func unsubscribes and waits for the pending writes to finish.
func StartSessionAuditSubscriber(bus *SessionEventBus, auditRepo repository.AuditLogRepository, logger *log.Logger) func() {
	if logger == nil {
		logger = log.Default()
	}

	events, cancel := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range events {
			recordSessionEvent(auditRepo, logger, ev)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func recordSessionEvent(auditRepo repository.AuditLogRepository, logger *log.Logger, ev SessionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionAuditWriteTimeout)
	defer cancel()

	if ev.Metadata != nil && ev.Metadata.RequestID != "" {
		ctx = context.WithValue(ctx, utils.RequestIDKey, ev.Metadata.RequestID)
	}

	action := sessionAuditAction(ev)
	description := fmt.Sprintf("%s via %s (session %s)", ev.Type, ev.Source, ev.CorrelationID)
	customerID := ev.CustomerID

	if err := writeAudit(ctx, auditRepo, &customerID, action, description, true, nil, ev.Metadata); err != nil {
		logger.Printf("failed to audit %s for customer %d: %v", ev.Type, ev.CustomerID, err)
	}
}

func sessionAuditAction(ev SessionEvent) string {
	switch ev.Type {
	case SessionEventSignedIn:
		if ev.Source == "signup" {
			return models.AuditActionSignupCompleted
		}
		return models.AuditActionLoginSuccess
	case SessionEventSignedOut:
		return models.AuditActionLogout
	case SessionEventExpired:
		return models.AuditActionSessionExpired
	case SessionEventRefreshed:
		return models.AuditActionSessionRefreshed
	}
	return string(ev.Type)
}
