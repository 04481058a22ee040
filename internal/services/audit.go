package services

import (
	"context"
	"log/slog"
	"time"

	"estateadmin/internal/domain"
)

type auditLogger struct {
	repo   domain.AuditRepository
	logger *slog.Logger
}

// NewAuditLogger returns the best-effort audit writer. Record never reports
// failure: by the time an event is written the primary mutation has already
// been persisted, so a failed insert is logged at Warn and dropped.
func NewAuditLogger(repo domain.AuditRepository, logger *slog.Logger) domain.AuditLogger {
	return &auditLogger{repo: repo, logger: logger}
}

func (a *auditLogger) Record(ctx context.Context, event *domain.AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := a.repo.Insert(ctx, event); err != nil {
		a.logger.Warn("audit event dropped",
			"kind", event.Kind,
			"estate_id", event.EstateID,
			"actor_id", event.ActorID,
			"err", err,
		)
	}
}
