package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
)

// OrganizationHandler handles organization CRUD and membership endpoints.
type OrganizationHandler struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(repo *repository.Repository, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{repo: repo, logger: logger}
}

// canManage reports whether the caller may see or change the organization.
// Staff and superusers see everything; platform users only their own.
func canManage(authCtx *model.AuthContext, org *model.Organization) bool {
	if authCtx == nil {
		return false
	}
	if authCtx.Type == model.TypeSuperuser || authCtx.Type == model.TypeStaff {
		return true
	}
	return org.IsMember(authCtx.UserID)
}

// Create handles POST /api/v1/organizations.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "Organization name is required")
		return
	}

	members := req.Members
	// Creator is always a member
	if userID := auth.UserIDFromContext(r.Context()); userID != "" && !slices.Contains(members, userID) {
		members = append(members, userID)
	}

	org := &model.Organization{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.CreateOrganization(r.Context(), org); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("organization_created",
		"organization_id", org.ID,
		"member_count", len(org.Members),
	)

	writeJSON(w, http.StatusCreated, org)
}

// List handles GET /api/v1/organizations.
// Staff and superusers see all organizations, platform users their own.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var (
		orgs []*model.Organization
		err  error
	)
	if authCtx.Type == model.TypeSuperuser || authCtx.Type == model.TypeStaff {
		orgs, err = h.repo.ListOrganizations(r.Context())
	} else {
		orgs, err = h.repo.ListOrganizationsForUser(r.Context(), authCtx.UserID)
	}
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

// Get handles GET /api/v1/organizations/{id}.
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, org)
}

// Update handles PATCH /api/v1/organizations/{id}.
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	org, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	var req model.UpdateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.repo.UpdateOrganization(r.Context(), org.ID, &req); err != nil {
		h.handleError(w, err)
		return
	}

	updated, err := h.repo.GetOrganizationByID(r.Context(), org.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("organization_updated", "organization_id", org.ID)

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/organizations/{id}. Superuser only,
// enforced by routing.
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Organization ID is required")
		return
	}

	if err := h.repo.DeleteOrganization(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("organization_deleted", "organization_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// AddUsers handles POST /api/v1/organizations/{id}/add-users.
func (h *OrganizationHandler) AddUsers(w http.ResponseWriter, r *http.Request) {
	org, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	req, ok := decodeMembership(w, r)
	if !ok {
		return
	}

	members := org.Members
	for _, userID := range req.UserIDs {
		if _, err := h.repo.GetUserByID(r.Context(), userID); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "UNKNOWN_USER", "One or more user IDs do not exist")
			return
		}
		if !slices.Contains(members, userID) {
			members = append(members, userID)
		}
	}

	if err := h.repo.SetOrganizationMembers(r.Context(), org.ID, members); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("organization_members_added",
		"organization_id", org.ID,
		"added", len(req.UserIDs),
	)

	org.Members = members
	writeJSON(w, http.StatusOK, org)
}

// RemoveUsers handles POST /api/v1/organizations/{id}/remove-users.
func (h *OrganizationHandler) RemoveUsers(w http.ResponseWriter, r *http.Request) {
	org, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	req, ok := decodeMembership(w, r)
	if !ok {
		return
	}

	members := make([]string, 0, len(org.Members))
	for _, member := range org.Members {
		if !slices.Contains(req.UserIDs, member) {
			members = append(members, member)
		}
	}

	if err := h.repo.SetOrganizationMembers(r.Context(), org.ID, members); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("organization_members_removed",
		"organization_id", org.ID,
		"removed", len(org.Members)-len(members),
	)

	org.Members = members
	writeJSON(w, http.StatusOK, org)
}

// AuditTrail handles GET /api/v1/organizations/{id}/audit-events.
// Newest first; limit capped by the repository.
func (h *OrganizationHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	org, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.repo.ListAuditEvents(r.Context(), org.ID, limit)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// loadAccessible fetches the organization from the URL and enforces
// membership visibility. Hidden organizations read as not found.
func (h *OrganizationHandler) loadAccessible(w http.ResponseWriter, r *http.Request) (*model.Organization, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Organization ID is required")
		return nil, false
	}

	org, err := h.repo.GetOrganizationByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return nil, false
	}

	if !canManage(auth.AuthFromContext(r.Context()), org) {
		writeError(w, http.StatusNotFound, "ORGANIZATION_NOT_FOUND", "Organization not found")
		return nil, false
	}

	return org, true
}

func decodeMembership(w http.ResponseWriter, r *http.Request) (*model.MembershipRequest, bool) {
	var req model.MembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return nil, false
	}
	if len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_USER_IDS", "user_ids is required")
		return nil, false
	}
	return &req, true
}

// handleError maps repository errors to HTTP responses.
func (h *OrganizationHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrOrganizationNotFound):
		writeError(w, http.StatusNotFound, "ORGANIZATION_NOT_FOUND", "Organization not found")
	case errors.Is(err, repository.ErrOrganizationExists):
		writeError(w, http.StatusConflict, "NAME_TAKEN", "Organization name already taken")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
