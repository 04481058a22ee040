package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "estateadmin/internal/delivery/http/helpers"
	"estateadmin/internal/delivery/http/middleware"
	"estateadmin/internal/domain"
)

// CreateInviteRequest is the request body for POST /estates/{estateID}/invites
type CreateInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate implements Validator.
func (c CreateInviteRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "email is required")
	}
	if strings.TrimSpace(c.Role) == "" {
		errs = append(errs, "role is required")
	}
	return errs
}

// RevokeInviteRequest is the request body for DELETE /estates/{estateID}/invites.
// Exactly one of token or email must be set; token wins when both are present.
type RevokeInviteRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Validate implements Validator.
func (rr RevokeInviteRequest) Validate() []string {
	if strings.TrimSpace(rr.Token) == "" && strings.TrimSpace(rr.Email) == "" {
		return []string{"token or email is required"}
	}
	return nil
}

// InviteListResponse wraps an estate's invites, newest first.
type InviteListResponse struct {
	OK      bool            `json:"ok"`
	Invites []domain.Invite `json:"invites"`
}

// InviteResponse is the response body for invite creation and rotation.
type InviteResponse struct {
	OK           bool      `json:"ok"`
	InviteURL    string    `json:"inviteUrl"`
	Token        string    `json:"token"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expiresAt"`
	PreviousRole string    `json:"previousRole,omitempty"`
}

// RevokeInviteResponse is the response body for an invite revocation. Status
// is NOT_FOUND, REVOKED, or EXPIRED; all three are successes.
type RevokeInviteResponse struct {
	OK        bool       `json:"ok"`
	Status    string     `json:"status"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// AcceptInviteResponse is the response body for a successful accept.
type AcceptInviteResponse struct {
	OK       bool   `json:"ok"`
	EstateID string `json:"estateId"`
	Role     string `json:"role"`
}

type InviteController struct {
	Logger  *slog.Logger
	Service domain.InviteService
}

func NewInviteController(logger *slog.Logger, svc domain.InviteService) *InviteController {
	return &InviteController{
		Logger:  logger,
		Service: svc,
	}
}

// List godoc
// @Summary List an estate's invites
// @Description Owner only. Stale pending invites are expired before listing; newest first.
// @Tags invites
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Success 200 {object} InviteListResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/invites [get]
func (c *InviteController) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	invites, err := c.Service.List(r.Context(), r.PathValue("estateID"), session.UserID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	if invites == nil {
		invites = []domain.Invite{}
	}
	h.WriteJSON(w, http.StatusOK, InviteListResponse{OK: true, Invites: invites})
}

// Create godoc
// @Summary Create or rotate an invite
// @Description Owner only, rate-limited. A pending invite for the same email is rotated in place (200 with previousRole); otherwise a fresh invite is created (201).
// @Tags invites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Param body body CreateInviteRequest true "Invitee email and role"
// @Success 200 {object} InviteResponse "rotated"
// @Success 201 {object} InviteResponse "created"
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Failure 429 {object} helpers.ErrorResponse "pending invite cap reached"
// @Router /estates/{estateID}/invites [post]
func (c *InviteController) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	var req CreateInviteRequest
	if !h.DecodeJSONBody(w, r, &req) {
		return
	}
	receipt, err := c.Service.Create(r.Context(), r.PathValue("estateID"),
		session.UserID, session.Email, req.Email, strings.ToUpper(strings.TrimSpace(req.Role)))
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	resp := InviteResponse{
		OK:        true,
		InviteURL: receipt.InviteURL,
		Token:     receipt.Invite.Token,
		Email:     receipt.Invite.Email,
		Role:      receipt.Invite.Role.String(),
		Status:    string(receipt.Invite.Status),
		ExpiresAt: receipt.Invite.ExpiresAt,
	}
	status := http.StatusCreated
	if receipt.Rotated {
		status = http.StatusOK
		resp.PreviousRole = receipt.PreviousRole.String()
	}
	h.WriteJSON(w, status, resp)
}

// Revoke godoc
// @Summary Revoke an invite
// @Description Owner only, rate-limited. Locates the invite by token (preferred) or email. Missing, already-revoked, and expired invites are reported as successes; only a non-revocable state (e.g. accepted) is a 400.
// @Tags invites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Param body body RevokeInviteRequest true "Token or email"
// @Success 200 {object} RevokeInviteResponse
// @Failure 400 {object} helpers.ErrorResponse "invite is in a non-revocable state"
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/invites [delete]
func (c *InviteController) Revoke(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	var req RevokeInviteRequest
	if !h.DecodeJSONBody(w, r, &req) {
		return
	}
	receipt, err := c.Service.Revoke(r.Context(), r.PathValue("estateID"),
		session.UserID, strings.TrimSpace(req.Token), req.Email)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RevokeInviteResponse{
		OK:        true,
		Status:    string(receipt.Outcome),
		RevokedAt: receipt.RevokedAt,
	})
}

// Accept godoc
// @Summary Accept an invite on an estate
// @Description The authenticated user's email must match the invite's email. Grants the invite's role as a collaborator entry.
// @Tags invites
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Param token path string true "Invite token"
// @Success 200 {object} AcceptInviteResponse
// @Failure 400 {object} helpers.ErrorResponse "invite not pending or expired"
// @Failure 403 {object} helpers.ErrorResponse "email does not match"
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/invites/{token}/accept [post]
func (c *InviteController) Accept(w http.ResponseWriter, r *http.Request) {
	c.accept(w, r, r.PathValue("estateID"))
}

// AcceptByToken godoc
// @Summary Accept an invite by token
// @Description Estate-agnostic accept; the estate is resolved by token lookup. Same semantics as the estate-scoped route.
// @Tags invites
// @Produce json
// @Security BearerAuth
// @Param token path string true "Invite token"
// @Success 200 {object} AcceptInviteResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /invites/{token}/accept [post]
func (c *InviteController) AcceptByToken(w http.ResponseWriter, r *http.Request) {
	c.accept(w, r, "")
}

func (c *InviteController) accept(w http.ResponseWriter, r *http.Request, estateID string) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	receipt, err := c.Service.Accept(r.Context(), estateID, r.PathValue("token"),
		session.UserID, session.Email)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AcceptInviteResponse{
		OK:       true,
		EstateID: receipt.EstateID,
		Role:     receipt.Role.String(),
	})
}
