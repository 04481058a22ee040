package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	h "estateadmin/internal/delivery/http/helpers"
	"estateadmin/internal/domain"
)

// writeDomainError translates a service error into an HTTP response. Sentinel
// errors map to their status; anything unrecognized is logged and reported as
// a 500 with a generic message.
func writeDomainError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var stateErr *domain.InviteStateError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		h.WriteError(w, http.StatusNotFound, h.ErrMsgNotFound)
	case errors.Is(err, domain.ErrForbidden):
		h.WriteError(w, http.StatusForbidden, h.ErrMsgForbidden)
	case errors.Is(err, domain.ErrEmailMismatch):
		h.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		h.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		h.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInviteCapReached):
		h.WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrInviteExpired):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stateErr):
		h.WriteError(w, http.StatusBadRequest, stateErr.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
