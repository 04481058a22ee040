package domain

import (
	"context"
	"fmt"
	"time"
)

// Role is a user's effective permission level on an estate. It is derived
// from the estate on every check, never stored as a standalone field.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "OWNER"
	case RoleEditor:
		return "EDITOR"
	case RoleViewer:
		return "VIEWER"
	default:
		return "NONE"
	}
}

// MarshalText renders the role in its wire form (e.g. "EDITOR").
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a stored role. Only grantable roles and OWNER are
// accepted; anything else is an error rather than a silent fallback.
func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "OWNER":
		*r = RoleOwner
	case "EDITOR":
		*r = RoleEditor
	case "VIEWER":
		*r = RoleViewer
	case "NONE", "":
		*r = RoleNone
	default:
		return fmt.Errorf("unknown role %q", string(b))
	}
	return nil
}

// ParseGrantableRole parses a role that may be granted to a collaborator or
// carried by an invite. OWNER is derived from Estate.OwnerID and is never
// grantable.
func ParseGrantableRole(s string) (Role, error) {
	switch s {
	case "EDITOR":
		return RoleEditor, nil
	case "VIEWER":
		return RoleViewer, nil
	default:
		return RoleNone, fmt.Errorf("%w: role must be EDITOR or VIEWER", ErrInvalidInput)
	}
}

// Collaborator is a non-owner user granted a role on an estate. An estate
// holds at most one entry per user, and never one for its owner.
type Collaborator struct {
	UserID  string    `json:"userId"`
	Role    Role      `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}

// Estate is the tenant entity: a probate case administered by its owner and
// shared with collaborators. Collaborators and invites are embedded and the
// whole estate is saved back on every state-changing operation.
type Estate struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"ownerId"`
	Name          string         `json:"name"`
	Collaborators []Collaborator `json:"collaborators"`
	// Invites carry live accept tokens, so they never ride along when an
	// estate is serialized to a member. The repository marshals them
	// explicitly, and the owner-only invite listing returns them directly.
	Invites   []Invite  `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewEstate returns a new Estate owned by ownerID. ID is set by the
// repository on create.
func NewEstate(ownerID, name string, now time.Time) *Estate {
	return &Estate{
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ResolveRole computes the effective role of userID on the estate:
// OWNER for the estate owner, the stored collaborator role if present,
// RoleNone otherwise. It never mutates the estate.
func ResolveRole(e *Estate, userID string) Role {
	if e == nil || userID == "" {
		return RoleNone
	}
	if userID == e.OwnerID {
		return RoleOwner
	}
	for i := range e.Collaborators {
		if e.Collaborators[i].UserID == userID {
			return e.Collaborators[i].Role
		}
	}
	return RoleNone
}

// FindCollaborator returns a pointer to the collaborator entry for userID,
// or nil if the user has no stored grant.
func (e *Estate) FindCollaborator(userID string) *Collaborator {
	for i := range e.Collaborators {
		if e.Collaborators[i].UserID == userID {
			return &e.Collaborators[i]
		}
	}
	return nil
}

// RemoveCollaborator drops the entry for userID. Returns false if no entry
// existed.
func (e *Estate) RemoveCollaborator(userID string) bool {
	for i := range e.Collaborators {
		if e.Collaborators[i].UserID == userID {
			e.Collaborators = append(e.Collaborators[:i], e.Collaborators[i+1:]...)
			return true
		}
	}
	return false
}

// FindInviteByToken returns a pointer to the invite with the given token, or
// nil. Tokens are unique within an estate.
func (e *Estate) FindInviteByToken(token string) *Invite {
	for i := range e.Invites {
		if e.Invites[i].Token == token {
			return &e.Invites[i]
		}
	}
	return nil
}

// FindPendingInviteByEmail returns the most recent invite for the normalized
// email that is still pending and unexpired at now, or nil.
func (e *Estate) FindPendingInviteByEmail(email string, now time.Time) *Invite {
	var found *Invite
	for i := range e.Invites {
		inv := &e.Invites[i]
		if inv.Email != email || inv.EffectiveStatus(now) != InviteStatusPending {
			continue
		}
		if found == nil || inv.CreatedAt.After(found.CreatedAt) {
			found = inv
		}
	}
	return found
}

// FindRevocableInviteByEmail returns the most recent invite for the
// normalized email whose stored status is still PENDING. Natural expiry is
// ignored here: a stale invite located this way is flipped to EXPIRED by the
// caller rather than reported as missing.
func (e *Estate) FindRevocableInviteByEmail(email string) *Invite {
	var found *Invite
	for i := range e.Invites {
		inv := &e.Invites[i]
		if inv.Email != email || inv.Status != InviteStatusPending {
			continue
		}
		if found == nil || inv.CreatedAt.After(found.CreatedAt) {
			found = inv
		}
	}
	return found
}

// CountPendingInvites counts invites that are pending and unexpired at now.
func (e *Estate) CountPendingInvites(now time.Time) int {
	n := 0
	for i := range e.Invites {
		if e.Invites[i].EffectiveStatus(now) == InviteStatusPending {
			n++
		}
	}
	return n
}

// EstateRepository defines storage for estates. Save writes the whole estate
// row (including the embedded collaborator and invite collections) back;
// concurrent writers to the same estate are last-write-wins.
type EstateRepository interface {
	Create(ctx context.Context, estate *Estate) error
	GetByID(ctx context.Context, id string) (*Estate, error)
	// GetByInviteToken resolves the estate holding an invite with the given
	// token, for the estate-agnostic accept route.
	GetByInviteToken(ctx context.Context, token string) (*Estate, error)
	// ListByMember returns estates the user owns or collaborates on,
	// newest first.
	ListByMember(ctx context.Context, userID string) ([]*Estate, error)
	Save(ctx context.Context, estate *Estate) error
}

// EstateService defines estate and collaborator management.
type EstateService interface {
	Create(ctx context.Context, ownerID, name string) (*Estate, error)
	// GetForUser loads an estate for a member and returns the caller's
	// resolved role. Non-members get ErrNotFound, hiding existence.
	GetForUser(ctx context.Context, estateID, userID string) (*Estate, Role, error)
	ListForUser(ctx context.Context, userID string) ([]*Estate, error)
	ListCollaborators(ctx context.Context, estateID, callerID string) ([]Collaborator, error)
	// ChangeCollaboratorRole updates an existing grant (owner only) and
	// returns the updated entry and the previous role.
	ChangeCollaboratorRole(ctx context.Context, estateID, callerID, userID string, role Role) (*Collaborator, Role, error)
	RemoveCollaborator(ctx context.Context, estateID, callerID, userID string) error
	ListAuditEvents(ctx context.Context, estateID, callerID string, params PaginationParams) ([]*AuditEvent, int, error)
}
