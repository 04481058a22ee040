package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estateadmin/internal/domain"
)

type estateService struct {
	estates        domain.EstateRepository
	auditRepo      domain.AuditRepository
	gate           Gate
	audit          domain.AuditLogger
	contextTimeout time.Duration
}

// NewEstateService creates the estate and collaborator management service.
func NewEstateService(
	estates domain.EstateRepository,
	auditRepo domain.AuditRepository,
	gate Gate,
	audit domain.AuditLogger,
	timeout time.Duration,
) domain.EstateService {
	return &estateService{
		estates:        estates,
		auditRepo:      auditRepo,
		gate:           gate,
		audit:          audit,
		contextTimeout: timeout,
	}
}

func (s *estateService) Create(ctx context.Context, ownerID, name string) (*domain.Estate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if ownerID == "" {
		return nil, fmt.Errorf("%w: estate owner is required", domain.ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	estate := domain.NewEstate(ownerID, name, time.Now())
	if err := s.estates.Create(ctx, estate); err != nil {
		return nil, fmt.Errorf("create estate: %w", err)
	}
	return estate, nil
}

func (s *estateService) GetForUser(ctx context.Context, estateID, userID string) (*domain.Estate, domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, domain.RoleNone, err
	}
	role, err := s.gate.RequireViewer(estate, userID)
	if err != nil {
		return nil, domain.RoleNone, err
	}
	return estate, role, nil
}

func (s *estateService) ListForUser(ctx context.Context, userID string) ([]*domain.Estate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estates, err := s.estates.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list estates: %w", err)
	}
	if estates == nil {
		estates = []*domain.Estate{}
	}
	return estates, nil
}

func (s *estateService) ListCollaborators(ctx context.Context, estateID, callerID string) ([]domain.Collaborator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireViewer(estate, callerID); err != nil {
		return nil, err
	}
	out := make([]domain.Collaborator, len(estate.Collaborators))
	copy(out, estate.Collaborators)
	return out, nil
}

func (s *estateService) ChangeCollaboratorRole(ctx context.Context, estateID, callerID, userID string, role domain.Role) (*domain.Collaborator, domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, domain.RoleNone, err
	}
	if _, err := s.gate.RequireOwner(estate, callerID); err != nil {
		return nil, domain.RoleNone, err
	}
	if role != domain.RoleEditor && role != domain.RoleViewer {
		return nil, domain.RoleNone, fmt.Errorf("%w: role must be EDITOR or VIEWER", domain.ErrInvalidInput)
	}
	if userID == estate.OwnerID {
		return nil, domain.RoleNone, fmt.Errorf("%w: the owner's role cannot be changed", domain.ErrInvalidInput)
	}
	col := estate.FindCollaborator(userID)
	if col == nil {
		return nil, domain.RoleNone, domain.ErrNotFound
	}
	previous := col.Role
	if previous == role {
		out := *col
		return &out, previous, nil
	}
	col.Role = role
	now := time.Now()
	estate.UpdatedAt = now
	if err := s.estates.Save(ctx, estate); err != nil {
		return nil, domain.RoleNone, fmt.Errorf("save estate: %w", err)
	}
	s.audit.Record(ctx, &domain.AuditEvent{
		EstateID: estate.ID,
		Kind:     domain.AuditRoleChanged,
		ActorID:  callerID,
		Details: map[string]any{
			"userId":       userID,
			"previousRole": previous.String(),
			"newRole":      role.String(),
		},
		CreatedAt: now,
	})
	out := *col
	return &out, previous, nil
}

func (s *estateService) RemoveCollaborator(ctx context.Context, estateID, callerID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return err
	}
	if _, err := s.gate.RequireOwner(estate, callerID); err != nil {
		return err
	}
	if userID == estate.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed", domain.ErrInvalidInput)
	}
	if !estate.RemoveCollaborator(userID) {
		return domain.ErrNotFound
	}
	now := time.Now()
	estate.UpdatedAt = now
	if err := s.estates.Save(ctx, estate); err != nil {
		return fmt.Errorf("save estate: %w", err)
	}
	s.audit.Record(ctx, &domain.AuditEvent{
		EstateID:  estate.ID,
		Kind:      domain.AuditCollaboratorRemoved,
		ActorID:   callerID,
		Details:   map[string]any{"userId": userID},
		CreatedAt: now,
	})
	return nil
}

func (s *estateService) ListAuditEvents(ctx context.Context, estateID, callerID string, params domain.PaginationParams) ([]*domain.AuditEvent, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.gate.RequireOwner(estate, callerID); err != nil {
		return nil, 0, err
	}
	events, total, err := s.auditRepo.ListByEstateID(ctx, estateID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit events: %w", err)
	}
	if events == nil {
		events = []*domain.AuditEvent{}
	}
	return events, total, nil
}

func (s *estateService) getEstate(ctx context.Context, estateID string) (*domain.Estate, error) {
	estate, err := s.estates.GetByID(ctx, estateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get estate: %w", err)
	}
	return estate, nil
}
