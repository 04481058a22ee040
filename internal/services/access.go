package services

import (
	"estateadmin/internal/domain"
)

// Gate classifies a user's access to an estate. It only reads: every check
// resolves the role from the estate document and returns a sentinel error the
// delivery layer translates into a status code. Estates a user cannot view
// are reported as not found so their existence is not leaked to non-members.
type Gate struct{}

func NewGate() Gate {
	return Gate{}
}

// RequireViewer succeeds for OWNER, EDITOR and VIEWER. Non-members and
// missing estates both resolve to ErrNotFound.
func (Gate) RequireViewer(estate *domain.Estate, userID string) (domain.Role, error) {
	if estate == nil {
		return domain.RoleNone, domain.ErrNotFound
	}
	role := domain.ResolveRole(estate, userID)
	if role == domain.RoleNone {
		return domain.RoleNone, domain.ErrNotFound
	}
	return role, nil
}

// RequireEditor succeeds for OWNER and EDITOR; VIEWER and non-members get
// ErrForbidden.
func (Gate) RequireEditor(estate *domain.Estate, userID string) (domain.Role, error) {
	if estate == nil {
		return domain.RoleNone, domain.ErrNotFound
	}
	role := domain.ResolveRole(estate, userID)
	if role != domain.RoleOwner && role != domain.RoleEditor {
		return role, domain.ErrForbidden
	}
	return role, nil
}

// RequireOwner succeeds only for the estate owner. Collaborator and invite
// management go through this check.
func (Gate) RequireOwner(estate *domain.Estate, userID string) (domain.Role, error) {
	if estate == nil {
		return domain.RoleNone, domain.ErrNotFound
	}
	role := domain.ResolveRole(estate, userID)
	if role != domain.RoleOwner {
		return role, domain.ErrForbidden
	}
	return role, nil
}
