package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/plixa/plixa/internal/audit"
	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
	"github.com/plixa/plixa/internal/service"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = 30 * time.Minute
)

// AccountNotifier sends account lifecycle emails. Delivery failures must
// never fail the request that triggered them.
type AccountNotifier interface {
	SendWelcome(ctx context.Context, email, firstName string) error
	SendPasswordReset(ctx context.Context, email, firstName, token string, expiresMinutes int) error
}

// AuthHandler handles registration, login and password recovery.
type AuthHandler struct {
	repo      *repository.Repository
	tokens    *auth.TokenIssuer
	evaluator *auth.Evaluator
	notifier  AccountNotifier
	events    service.Publisher
	logger    *slog.Logger
	tokenTTL  time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(repo *repository.Repository, tokens *auth.TokenIssuer, evaluator *auth.Evaluator, notifier AccountNotifier, events service.Publisher, logger *slog.Logger, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		repo:      repo,
		tokens:    tokens,
		evaluator: evaluator,
		notifier:  notifier,
		events:    events,
		logger:    logger,
		tokenTTL:  tokenTTL,
	}
}

// CreateUser handles POST /api/v1/auth/users.
// Anyone may register a platform user; privileged classifications require
// a superuser credential.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.Type == "" {
		req.Type = model.TypePlatformUser
	}
	if !req.Type.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_TYPE", "Unknown user classification")
		return
	}
	if req.Type != model.TypePlatformUser {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok || h.evaluator.Authorize(principal, model.ScopeAll) != nil {
			writeError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE", "Only superusers may create privileged accounts")
			return
		}
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "A valid email address is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 8 characters")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Type:         req.Type,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("user_created",
		"user_id", user.ID,
		"user_type", string(user.Type),
	)

	if h.events != nil {
		h.events.PublishAsync(audit.EventPayload{
			Type:       audit.EventUserCreated,
			ActorEmail: user.Email,
			OccurredAt: user.CreatedAt.UnixMilli(),
		})
	}

	if h.notifier != nil {
		if err := h.notifier.SendWelcome(r.Context(), user.Email, user.FirstName); err != nil {
			h.logger.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, user.ToResponse())
}

// tokenRequest is the login request body.
type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the login response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken handles POST /api/v1/auth/token.
func (h *AuthHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and bad password
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if user.Disabled {
		writeError(w, http.StatusUnauthorized, "ACCOUNT_DISABLED", "Account is disabled")
		return
	}

	scopes := h.evaluator.Granted(user.Type)
	token, err := h.tokens.Issue(user.ID, scopes)
	if err != nil {
		h.logger.Error("token issuance failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("token_issued", "user_id", user.ID)

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}

// RequestPasswordReset handles POST /api/v1/auth/password-reset.
// Always answers 202 so callers cannot probe for registered emails.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	accepted := func() {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "If the email is registered, a reset link is on its way",
		})
	}

	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user.Disabled {
		accepted()
		return
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		h.logger.Error("reset token generation failed", "error", err)
		accepted()
		return
	}

	expiresAt := time.Now().Add(resetTokenTTL)
	if err := h.repo.SetResetToken(r.Context(), user.ID, token.Hash, expiresAt); err != nil {
		h.logger.Error("failed to store reset token", "user_id", user.ID, "error", err)
		accepted()
		return
	}

	if h.notifier != nil {
		if err := h.notifier.SendPasswordReset(r.Context(), user.Email, user.FirstName, token.Plaintext, int(resetTokenTTL.Minutes())); err != nil {
			h.logger.Warn("failed to send reset email", "user_id", user.ID, "error", err)
		}
	}

	h.logger.Info("password_reset_requested", "user_id", user.ID)
	accepted()
}

// ResetPassword handles POST /api/v1/auth/password-reset/confirm.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if len(req.NewPassword) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 8 characters")
		return
	}
	if err := auth.ParseResetToken(req.Token); err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired reset token")
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired reset token")
		return
	}

	storedHash, err := h.repo.GetResetToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired reset token")
		return
	}

	match, err := auth.VerifyPassword(req.Token, storedHash)
	if err != nil || !match {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired reset token")
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	if err := h.repo.UpdateUserPassword(r.Context(), user.ID, newHash); err != nil {
		h.logger.Error("failed to update password", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("password_reset_completed", "user_id", user.ID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
