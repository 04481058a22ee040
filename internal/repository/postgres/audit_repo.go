package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"estateadmin/internal/domain"
)

type auditRepository struct {
	DB *sql.DB
}

// NewAuditRepository returns a domain.AuditRepository implemented with
// Postgres. Events are append-only.
func NewAuditRepository(db *sql.DB) domain.AuditRepository {
	return &auditRepository{DB: db}
}

func (r *auditRepository) Insert(ctx context.Context, ev *domain.AuditEvent) error {
	details := ev.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	query := `
		INSERT INTO audit_events (estate_id, kind, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, ev.EstateID, string(ev.Kind), ev.ActorID, raw, ev.CreatedAt).Scan(&ev.ID)
}

func (r *auditRepository) ListByEstateID(ctx context.Context, estateID string, params domain.PaginationParams) ([]*domain.AuditEvent, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE estate_id = $1`, estateID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, estate_id, kind, actor_id, details, created_at
		FROM audit_events
		WHERE estate_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, estateID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.AuditEvent, 0)
	for rows.Next() {
		ev := &domain.AuditEvent{}
		var kind string
		var details []byte
		if err := rows.Scan(&ev.ID, &ev.EstateID, &kind, &ev.ActorID, &details, &ev.CreatedAt); err != nil {
			return nil, 0, err
		}
		ev.Kind = domain.AuditKind(kind)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
