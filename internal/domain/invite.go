package domain

import (
	"context"
	"time"
)

// InviteStatus is the lifecycle state of an invite. PENDING is the only
// non-terminal state: PENDING → ACCEPTED | REVOKED | EXPIRED, nothing leaves
// a terminal state.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusRevoked  InviteStatus = "REVOKED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
)

// Terminal reports whether no further transition may leave this status.
func (s InviteStatus) Terminal() bool {
	return s == InviteStatusAccepted || s == InviteStatusRevoked || s == InviteStatusExpired
}

// DefaultInviteTTL is the expiry applied to a new invite when none is set.
const DefaultInviteTTL = 7 * 24 * time.Hour

// MaxPendingInvites caps the number of pending, unexpired invites per estate.
const MaxPendingInvites = 50

// Invite is a token-addressed, time-bounded offer of a role on an estate to
// an email address. Invites are embedded in the estate and never hard-deleted;
// a pending invite for the same email is rotated in place instead.
type Invite struct {
	Token      string       `json:"token"`
	Email      string       `json:"email"`
	Role       Role         `json:"role"`
	Status     InviteStatus `json:"status"`
	CreatedBy  string       `json:"createdBy"`
	CreatedAt  time.Time    `json:"createdAt"`
	ExpiresAt  time.Time    `json:"expiresAt"`
	AcceptedBy string       `json:"acceptedBy,omitempty"`
	AcceptedAt *time.Time   `json:"acceptedAt,omitempty"`
	RevokedAt  *time.Time   `json:"revokedAt,omitempty"`
}

// NaturallyExpired reports whether the invite is stored as PENDING but its
// expiry has passed at now.
func (i *Invite) NaturallyExpired(now time.Time) bool {
	return i.Status == InviteStatusPending && !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// EffectiveStatus is the status every read path reports: the stored status,
// except that a pending invite past its expiry counts as EXPIRED.
func (i *Invite) EffectiveStatus(now time.Time) InviteStatus {
	if i.NaturallyExpired(now) {
		return InviteStatusExpired
	}
	return i.Status
}

// InviteReceipt is the result of creating or rotating an invite.
type InviteReceipt struct {
	Invite    Invite
	InviteURL string
	// Rotated is true when an existing pending invite for the same email was
	// re-issued in place; PreviousRole then carries its prior role.
	Rotated      bool
	PreviousRole Role
}

// RevokeOutcome is the terminal disposition reported by a revoke call. All
// outcomes are successes; revoke is idempotent.
type RevokeOutcome string

const (
	RevokeOutcomeNotFound RevokeOutcome = "NOT_FOUND"
	RevokeOutcomeRevoked  RevokeOutcome = "REVOKED"
	RevokeOutcomeExpired  RevokeOutcome = "EXPIRED"
)

// RevokeReceipt is the result of a revoke call.
type RevokeReceipt struct {
	Outcome   RevokeOutcome
	RevokedAt *time.Time
}

// AcceptReceipt is the result of accepting an invite.
type AcceptReceipt struct {
	EstateID string
	Role     Role
}

// InviteService manages the invite lifecycle on an estate. All operations
// resolve the caller's role through the access gate; create, revoke and list
// are owner-only.
type InviteService interface {
	// List lazily expires stale invites (persisting any flips in one pass)
	// and returns the estate's invites newest-first.
	List(ctx context.Context, estateID, callerID string) ([]Invite, error)
	// Create issues a fresh invite, or rotates the pending invite for the
	// same normalized email in place.
	Create(ctx context.Context, estateID, callerID, callerEmail, email, role string) (*InviteReceipt, error)
	// Revoke locates an invite by token (preferred) or email (fallback) and
	// revokes it. Missing, already-revoked and expired invites are reported
	// as successes with the corresponding outcome.
	Revoke(ctx context.Context, estateID, callerID, token, email string) (*RevokeReceipt, error)
	// Accept converts a pending invite into a collaborator grant for the
	// authenticated user. estateID may be empty, in which case the estate is
	// resolved by searching for the token.
	Accept(ctx context.Context, estateID, token, userID, userEmail string) (*AcceptReceipt, error)
}
