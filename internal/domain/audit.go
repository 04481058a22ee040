package domain

import (
	"context"
	"time"
)

// AuditKind names a recorded mutation on an estate's access state.
type AuditKind string

const (
	AuditInviteSent          AuditKind = "COLLABORATOR_INVITE_SENT"
	AuditInviteRevoked       AuditKind = "COLLABORATOR_INVITE_REVOKED"
	AuditCollaboratorAdded   AuditKind = "COLLABORATOR_ADDED"
	AuditRoleChanged         AuditKind = "COLLABORATOR_ROLE_CHANGED"
	AuditCollaboratorRemoved AuditKind = "COLLABORATOR_REMOVED"
)

// AuditEvent is an append-only record of a role, invite, or collaborator
// mutation.
// swagger:model AuditEvent
type AuditEvent struct {
	ID        int64          `json:"id"`
	EstateID  string         `json:"estateId"`
	Kind      AuditKind      `json:"kind"`
	ActorID   string         `json:"actorId"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditRepository defines storage for audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *AuditEvent) error
	// ListByEstateID returns a page of events newest-first plus the total count.
	ListByEstateID(ctx context.Context, estateID string, params PaginationParams) ([]*AuditEvent, int, error)
}

// AuditLogger is a best-effort side channel: Record never reports failure to
// the caller. The primary mutation has already succeeded by the time an event
// is recorded, so a failed write is logged by the implementation and dropped.
type AuditLogger interface {
	Record(ctx context.Context, event *AuditEvent)
}

// PaginationParams holds offset-based pagination for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the 0-based row offset for the current page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}
