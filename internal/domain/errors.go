package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across services. Controllers translate these into
// HTTP statuses with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailMismatch is returned when the authenticated user's email does
	// not match the invite's email on accept.
	ErrEmailMismatch = errors.New("email does not match")

	// ErrInviteExpired is returned when an invite's expiry has passed. The
	// invite is persisted as EXPIRED before this is returned.
	ErrInviteExpired = errors.New("Invite expired")

	// ErrInviteCapReached is returned when an estate already has the maximum
	// number of pending, unexpired invites. Callers should revoke or wait.
	ErrInviteCapReached = errors.New("too many pending invites; revoke one or wait for expiry")
)

// InviteStateError reports an invite in a state that does not permit the
// attempted transition (e.g. accepting a revoked invite).
type InviteStateError struct {
	Status InviteStatus
}

func (e *InviteStateError) Error() string {
	return fmt.Sprintf("Invite is %s", strings.ToLower(string(e.Status)))
}
