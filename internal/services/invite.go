package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"estateadmin/internal/domain"
)

const (
	// inviteTokenBytes gives 192 bits of entropy per token.
	inviteTokenBytes   = 24
	maxTokenGenRetries = 10
	maxInviteEmailLen  = 254
)

type inviteService struct {
	estates        domain.EstateRepository
	users          domain.UserRepository
	gate           Gate
	audit          domain.AuditLogger
	email          domain.EmailService
	baseURL        string
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewInviteService creates the invite lifecycle manager. baseURL is the
// public application origin used to build invite links.
func NewInviteService(
	estates domain.EstateRepository,
	users domain.UserRepository,
	gate Gate,
	audit domain.AuditLogger,
	email domain.EmailService,
	baseURL string,
	logger *slog.Logger,
	timeout time.Duration,
) domain.InviteService {
	return &inviteService{
		estates:        estates,
		users:          users,
		gate:           gate,
		audit:          audit,
		email:          email,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// normalizeEmail trims and lower-cases an address for comparison and storage.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateInviteEmail checks a normalized invitee address: exactly one @,
// not at either end, no whitespace, at most 254 characters.
func validateInviteEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if len(email) > maxInviteEmailLen {
		return fmt.Errorf("%w: email must be at most %d characters", domain.ErrInvalidInput, maxInviteEmailLen)
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("%w: email must not contain whitespace", domain.ErrInvalidInput)
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	return nil
}

func generateInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// uniqueInviteToken generates a token not already present on the estate,
// regenerating on collision a bounded number of times.
func uniqueInviteToken(estate *domain.Estate) (string, error) {
	for i := 0; i < maxTokenGenRetries; i++ {
		token, err := generateInviteToken()
		if err != nil {
			return "", err
		}
		if estate.FindInviteByToken(token) == nil {
			return token, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique invite token")
}

func (s *inviteService) inviteURL(token string) string {
	return fmt.Sprintf("%s/invites/%s/accept", s.baseURL, token)
}

func (s *inviteService) getEstate(ctx context.Context, estateID string) (*domain.Estate, error) {
	estate, err := s.estates.GetByID(ctx, estateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get estate: %w", err)
	}
	return estate, nil
}

func (s *inviteService) List(ctx context.Context, estateID, callerID string) ([]domain.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireOwner(estate, callerID); err != nil {
		return nil, err
	}

	// Lazy expiry: flip every stale pending invite in one pass and persist
	// best-effort before returning.
	now := s.now()
	expired := false
	for i := range estate.Invites {
		if estate.Invites[i].NaturallyExpired(now) {
			estate.Invites[i].Status = domain.InviteStatusExpired
			expired = true
		}
	}
	if expired {
		estate.UpdatedAt = now
		if err := s.estates.Save(ctx, estate); err != nil {
			s.logger.Warn("could not persist expired invites", "estate_id", estate.ID, "err", err)
		}
	}

	out := make([]domain.Invite, len(estate.Invites))
	copy(out, estate.Invites)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *inviteService) Create(ctx context.Context, estateID, callerID, callerEmail, email, role string) (*domain.InviteReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireOwner(estate, callerID); err != nil {
		return nil, err
	}

	invitee := normalizeEmail(email)
	if err := validateInviteEmail(invitee); err != nil {
		return nil, err
	}
	grant, err := domain.ParseGrantableRole(role)
	if err != nil {
		return nil, err
	}
	if invitee == normalizeEmail(callerEmail) {
		return nil, fmt.Errorf("%w: you cannot invite yourself", domain.ErrInvalidInput)
	}

	now := s.now()
	existing := estate.FindPendingInviteByEmail(invitee, now)
	if existing == nil && estate.CountPendingInvites(now) >= domain.MaxPendingInvites {
		return nil, domain.ErrInviteCapReached
	}

	token, err := uniqueInviteToken(estate)
	if err != nil {
		return nil, err
	}

	receipt := &domain.InviteReceipt{}
	if existing != nil {
		// Rotate in place: fresh token, updated role and provenance, original
		// expiry kept unless it was never set.
		receipt.Rotated = true
		receipt.PreviousRole = existing.Role
		existing.Token = token
		existing.Role = grant
		existing.CreatedBy = callerID
		existing.CreatedAt = now
		if existing.ExpiresAt.IsZero() {
			existing.ExpiresAt = now.Add(domain.DefaultInviteTTL)
		}
		receipt.Invite = *existing
	} else {
		inv := domain.Invite{
			Token:     token,
			Email:     invitee,
			Role:      grant,
			Status:    domain.InviteStatusPending,
			CreatedBy: callerID,
			CreatedAt: now,
			ExpiresAt: now.Add(domain.DefaultInviteTTL),
		}
		estate.Invites = append(estate.Invites, inv)
		receipt.Invite = inv
	}

	estate.UpdatedAt = now
	if err := s.estates.Save(ctx, estate); err != nil {
		return nil, fmt.Errorf("save estate: %w", err)
	}
	receipt.InviteURL = s.inviteURL(token)

	details := map[string]any{
		"email":     invitee,
		"role":      grant.String(),
		"token":     token,
		"inviteUrl": receipt.InviteURL,
		"expiresAt": receipt.Invite.ExpiresAt,
		"rotated":   receipt.Rotated,
	}
	if receipt.Rotated {
		details["previousRole"] = receipt.PreviousRole.String()
	}
	s.audit.Record(ctx, &domain.AuditEvent{
		EstateID:  estate.ID,
		Kind:      domain.AuditInviteSent,
		ActorID:   callerID,
		Details:   details,
		CreatedAt: now,
	})
	s.sendInviteEmail(ctx, estate, callerID, receipt)
	return receipt, nil
}

// sendInviteEmail notifies the invitee. Failures are logged and swallowed;
// the invite has already been persisted.
func (s *inviteService) sendInviteEmail(ctx context.Context, estate *domain.Estate, inviterID string, receipt *domain.InviteReceipt) {
	if s.email == nil {
		return
	}
	inviterName := "The estate owner"
	if inviter, err := s.users.GetByID(ctx, inviterID); err == nil && inviter != nil {
		if name := strings.TrimSpace(inviter.Name); name != "" {
			inviterName = name
		} else if inviter.Email != "" {
			inviterName = inviter.Email
		}
	}
	data := &domain.InviteEmailData{
		Email:       receipt.Invite.Email,
		InviterName: inviterName,
		EstateName:  estate.Name,
		Role:        receipt.Invite.Role.String(),
		InviteURL:   receipt.InviteURL,
		ExpiresAt:   receipt.Invite.ExpiresAt,
	}
	if err := s.email.SendInvite(ctx, data); err != nil {
		s.logger.Warn("could not send invite email", "estate_id", estate.ID, "email", receipt.Invite.Email, "err", err)
	}
}

func (s *inviteService) Revoke(ctx context.Context, estateID, callerID, token, email string) (*domain.RevokeReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireOwner(estate, callerID); err != nil {
		return nil, err
	}

	now := s.now()
	var inv *domain.Invite
	if token != "" {
		inv = estate.FindInviteByToken(token)
	}
	if inv == nil && email != "" {
		// Lookup ignores natural expiry so a stale pending invite is still
		// found and flipped below instead of reported as NOT_FOUND.
		inv = estate.FindRevocableInviteByEmail(normalizeEmail(email))
	}
	if inv == nil {
		// Idempotent: nothing to revoke is a success.
		return &domain.RevokeReceipt{Outcome: domain.RevokeOutcomeNotFound}, nil
	}

	switch {
	case inv.Status == domain.InviteStatusRevoked:
		return &domain.RevokeReceipt{Outcome: domain.RevokeOutcomeRevoked, RevokedAt: inv.RevokedAt}, nil
	case inv.NaturallyExpired(now):
		inv.Status = domain.InviteStatusExpired
		estate.UpdatedAt = now
		if err := s.estates.Save(ctx, estate); err != nil {
			return nil, fmt.Errorf("save estate: %w", err)
		}
		return &domain.RevokeReceipt{Outcome: domain.RevokeOutcomeExpired}, nil
	case inv.Status == domain.InviteStatusExpired:
		return &domain.RevokeReceipt{Outcome: domain.RevokeOutcomeExpired}, nil
	case inv.Status != domain.InviteStatusPending:
		return nil, &domain.InviteStateError{Status: inv.Status}
	}

	revokedAt := now
	inv.Status = domain.InviteStatusRevoked
	inv.RevokedAt = &revokedAt
	estate.UpdatedAt = now
	if err := s.estates.Save(ctx, estate); err != nil {
		return nil, fmt.Errorf("save estate: %w", err)
	}
	s.audit.Record(ctx, &domain.AuditEvent{
		EstateID: estate.ID,
		Kind:     domain.AuditInviteRevoked,
		ActorID:  callerID,
		Details: map[string]any{
			"email": inv.Email,
			"token": inv.Token,
		},
		CreatedAt: now,
	})
	return &domain.RevokeReceipt{Outcome: domain.RevokeOutcomeRevoked, RevokedAt: &revokedAt}, nil
}

func (s *inviteService) Accept(ctx context.Context, estateID, token, userID, userEmail string) (*domain.AcceptReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var estate *domain.Estate
	var err error
	if estateID != "" {
		estate, err = s.getEstate(ctx, estateID)
	} else {
		estate, err = s.estates.GetByInviteToken(ctx, token)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("find estate by invite token: %w", err)
		} else if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	inv := estate.FindInviteByToken(token)
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.Status != domain.InviteStatusPending {
		return nil, &domain.InviteStateError{Status: inv.Status}
	}
	now := s.now()
	if inv.NaturallyExpired(now) {
		inv.Status = domain.InviteStatusExpired
		estate.UpdatedAt = now
		if err := s.estates.Save(ctx, estate); err != nil {
			s.logger.Warn("could not persist expired invite", "estate_id", estate.ID, "token", token, "err", err)
		}
		return nil, domain.ErrInviteExpired
	}
	if !strings.EqualFold(inv.Email, normalizeEmail(userEmail)) {
		return nil, domain.ErrEmailMismatch
	}
	if userID == estate.OwnerID {
		// The owner is never stored as a collaborator.
		return nil, fmt.Errorf("%w: estate owner already has full access", domain.ErrInvalidInput)
	}

	grantedRole := inv.Role
	var grantEvent *domain.AuditEvent
	if col := estate.FindCollaborator(userID); col != nil {
		if col.Role != grantedRole {
			previous := col.Role
			col.Role = grantedRole
			grantEvent = &domain.AuditEvent{
				EstateID: estate.ID,
				Kind:     domain.AuditRoleChanged,
				ActorID:  userID,
				Details: map[string]any{
					"userId":       userID,
					"previousRole": previous.String(),
					"newRole":      grantedRole.String(),
				},
				CreatedAt: now,
			}
		}
	} else {
		estate.Collaborators = append(estate.Collaborators, domain.Collaborator{
			UserID:  userID,
			Role:    grantedRole,
			AddedAt: now,
		})
		grantEvent = &domain.AuditEvent{
			EstateID: estate.ID,
			Kind:     domain.AuditCollaboratorAdded,
			ActorID:  userID,
			Details: map[string]any{
				"userId": userID,
				"role":   grantedRole.String(),
			},
			CreatedAt: now,
		}
	}

	acceptedAt := now
	inv.Status = domain.InviteStatusAccepted
	inv.AcceptedBy = userID
	inv.AcceptedAt = &acceptedAt
	estate.UpdatedAt = now
	if err := s.estates.Save(ctx, estate); err != nil {
		return nil, fmt.Errorf("save estate: %w", err)
	}

	if grantEvent != nil {
		s.audit.Record(ctx, grantEvent)
	}
	// Acceptance is always recorded as a COLLABORATOR_ADDED with a link
	// detail, even when the grant was a role change.
	s.audit.Record(ctx, &domain.AuditEvent{
		EstateID: estate.ID,
		Kind:     domain.AuditCollaboratorAdded,
		ActorID:  userID,
		Details: map[string]any{
			"userId": userID,
			"role":   grantedRole.String(),
			"via":    "link",
			"token":  token,
		},
		CreatedAt: now,
	})

	return &domain.AcceptReceipt{EstateID: estate.ID, Role: grantedRole}, nil
}
