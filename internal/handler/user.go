package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
)

// UserHandler handles user profile and administration endpoints.
type UserHandler struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(repo *repository.Repository, logger *slog.Logger) *UserHandler {
	return &UserHandler{repo: repo, logger: logger}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.repo.GetUserByID(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToResponse())
}

// UpdateMe handles PATCH /api/v1/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req model.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.repo.UpdateUser(r.Context(), userID, &req); err != nil {
		h.handleError(w, err)
		return
	}

	user, err := h.repo.GetUserByID(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("user_updated", "user_id", userID)

	writeJSON(w, http.StatusOK, user.ToResponse())
}

// List handles GET /api/v1/users. Superuser only, enforced by routing.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	responses := make([]model.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, user.ToResponse())
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": responses})
}

// Disable handles POST /api/v1/users/{id}/disable. Superuser only.
func (h *UserHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, true, "user_disabled")
}

// Enable handles POST /api/v1/users/{id}/enable. Superuser only.
func (h *UserHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, false, "user_enabled")
}

// Update handles PATCH /api/v1/users/{id}. Superuser only.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	var req model.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.repo.UpdateUser(r.Context(), id, &req); err != nil {
		h.handleError(w, err)
		return
	}

	user, err := h.repo.GetUserByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("user_updated", "user_id", id)

	writeJSON(w, http.StatusOK, user.ToResponse())
}

// Delete handles DELETE /api/v1/users/{id}. Superuser only.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	if err := h.repo.DeleteUser(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("user_deleted", "user_id", id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool, event string) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	if err := h.repo.SetUserDisabled(r.Context(), id, disabled); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info(event, "user_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleError maps repository errors to HTTP responses.
func (h *UserHandler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	h.logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}
