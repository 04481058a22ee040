package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "estateadmin/internal/delivery/http/helpers"
	"estateadmin/internal/delivery/http/middleware"
	"estateadmin/internal/domain"
)

// CreateEstateRequest is the request body for POST /estates
type CreateEstateRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (c CreateEstateRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

// ChangeRoleRequest is the request body for PATCH /estates/{estateID}/collaborators/{userID}
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// Validate implements Validator.
func (c ChangeRoleRequest) Validate() []string {
	if strings.TrimSpace(c.Role) == "" {
		return []string{"role is required"}
	}
	return nil
}

// EstateResponse wraps a single estate. Role is the caller's resolved role
// and is only set on reads.
type EstateResponse struct {
	OK     bool           `json:"ok"`
	Estate *domain.Estate `json:"estate"`
	Role   string         `json:"role,omitempty"`
}

// EstateListResponse wraps the estates a user owns or collaborates on.
type EstateListResponse struct {
	OK      bool             `json:"ok"`
	Estates []*domain.Estate `json:"estates"`
}

// CollaboratorListResponse wraps an estate's collaborator entries.
type CollaboratorListResponse struct {
	OK            bool                  `json:"ok"`
	Collaborators []domain.Collaborator `json:"collaborators"`
}

// CollaboratorResponse wraps an updated collaborator entry.
type CollaboratorResponse struct {
	OK           bool                 `json:"ok"`
	Collaborator *domain.Collaborator `json:"collaborator"`
	PreviousRole string               `json:"previousRole"`
}

// OKResponse is the bare success payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// AuditListResponse wraps a page of audit events.
type AuditListResponse struct {
	OK         bool                 `json:"ok"`
	Events     []*domain.AuditEvent `json:"events"`
	Pagination h.PaginationMeta     `json:"pagination"`
}

type EstateController struct {
	Logger  *slog.Logger
	Service domain.EstateService
}

func NewEstateController(logger *slog.Logger, svc domain.EstateService) *EstateController {
	return &EstateController{
		Logger:  logger,
		Service: svc,
	}
}

// Create godoc
// @Summary Create an estate
// @Description Create an estate; the authenticated user becomes its owner.
// @Tags estates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEstateRequest true "Estate data"
// @Success 201 {object} EstateResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Router /estates [post]
func (c *EstateController) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	var req CreateEstateRequest
	if !h.DecodeJSONBody(w, r, &req) {
		return
	}
	estate, err := c.Service.Create(r.Context(), session.UserID, strings.TrimSpace(req.Name))
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, EstateResponse{OK: true, Estate: estate})
}

// List godoc
// @Summary List the caller's estates
// @Description Estates the authenticated user owns or collaborates on, newest first.
// @Tags estates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} EstateListResponse
// @Router /estates [get]
func (c *EstateController) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	estates, err := c.Service.ListForUser(r.Context(), session.UserID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	if estates == nil {
		estates = []*domain.Estate{}
	}
	h.WriteJSON(w, http.StatusOK, EstateListResponse{OK: true, Estates: estates})
}

// Get godoc
// @Summary Get an estate
// @Description Returns the estate and the caller's resolved role. Non-members get 404.
// @Tags estates
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Success 200 {object} EstateResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID} [get]
func (c *EstateController) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	estate, role, err := c.Service.GetForUser(r.Context(), r.PathValue("estateID"), session.UserID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, EstateResponse{OK: true, Estate: estate, Role: role.String()})
}

// ListCollaborators godoc
// @Summary List an estate's collaborators
// @Tags collaborators
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Success 200 {object} CollaboratorListResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/collaborators [get]
func (c *EstateController) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	collaborators, err := c.Service.ListCollaborators(r.Context(), r.PathValue("estateID"), session.UserID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	if collaborators == nil {
		collaborators = []domain.Collaborator{}
	}
	h.WriteJSON(w, http.StatusOK, CollaboratorListResponse{OK: true, Collaborators: collaborators})
}

// ChangeCollaboratorRole godoc
// @Summary Change a collaborator's role
// @Description Owner only. Role must be EDITOR or VIEWER; the owner's role is immutable.
// @Tags collaborators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Param userID path string true "Collaborator user ID"
// @Param body body ChangeRoleRequest true "New role"
// @Success 200 {object} CollaboratorResponse
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/collaborators/{userID} [patch]
func (c *EstateController) ChangeCollaboratorRole(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	var req ChangeRoleRequest
	if !h.DecodeJSONBody(w, r, &req) {
		return
	}
	role, err := domain.ParseGrantableRole(strings.ToUpper(strings.TrimSpace(req.Role)))
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	collaborator, previous, err := c.Service.ChangeCollaboratorRole(
		r.Context(), r.PathValue("estateID"), session.UserID, r.PathValue("userID"), role)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CollaboratorResponse{
		OK:           true,
		Collaborator: collaborator,
		PreviousRole: previous.String(),
	})
}

// RemoveCollaborator godoc
// @Summary Remove a collaborator
// @Description Owner only. Removing the owner is rejected.
// @Tags collaborators
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Param userID path string true "Collaborator user ID"
// @Success 200 {object} OKResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/collaborators/{userID} [delete]
func (c *EstateController) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	err := c.Service.RemoveCollaborator(r.Context(), r.PathValue("estateID"), session.UserID, r.PathValue("userID"))
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// ListAuditEvents godoc
// @Summary List an estate's audit trail
// @Description Owner only. Newest-first, paginated with page and page_size.
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param estateID path string true "Estate ID"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} AuditListResponse
// @Failure 403 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /estates/{estateID}/audit [get]
func (c *EstateController) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, h.ErrMsgUnauthorized)
		return
	}
	params := h.ParsePagination(r)
	events, total, err := c.Service.ListAuditEvents(r.Context(), r.PathValue("estateID"), session.UserID, params)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	if events == nil {
		events = []*domain.AuditEvent{}
	}
	h.WriteJSON(w, http.StatusOK, AuditListResponse{
		OK:         true,
		Events:     events,
		Pagination: h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}
