package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
	"github.com/plixa/plixa/internal/service"
)

// WithdrawalHandler handles organization withdrawal endpoints.
type WithdrawalHandler struct {
	payments *service.PaymentService
	orgs     *OrganizationHandler
	logger   *slog.Logger
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(payments *service.PaymentService, orgs *OrganizationHandler, logger *slog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		payments: payments,
		orgs:     orgs,
		logger:   logger,
	}
}

// Create handles POST /api/v1/organizations/{id}/withdrawals.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return
	}

	var req model.CreateWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	withdrawal, err := h.payments.CreateWithdrawal(r.Context(), org.ID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("withdrawal_created",
		"reference", withdrawal.Reference,
		"organization_id", org.ID,
	)

	writeJSON(w, http.StatusCreated, withdrawal)
}

// Get handles GET /api/v1/organizations/{id}/withdrawals/{withdrawalID}.
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return
	}

	withdrawalID := chi.URLParam(r, "withdrawalID")
	withdrawal, err := h.orgs.repo.GetWithdrawalByID(r.Context(), withdrawalID)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			writeError(w, http.StatusNotFound, "WITHDRAWAL_NOT_FOUND", "Withdrawal not found")
			return
		}
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}
	if withdrawal.OrganizationID != org.ID {
		writeError(w, http.StatusNotFound, "WITHDRAWAL_NOT_FOUND", "Withdrawal not found")
		return
	}

	writeJSON(w, http.StatusOK, withdrawal)
}

// List handles GET /api/v1/organizations/{id}/withdrawals.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return
	}

	withdrawals, err := h.orgs.repo.ListWithdrawals(r.Context(), org.ID)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": withdrawals})
}

// Balance handles GET /api/v1/organizations/{id}/balance.
func (h *WithdrawalHandler) Balance(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return
	}

	balance, err := h.payments.OrganizationBalance(r.Context(), org.ID)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organization_id": org.ID,
		"balance":         balance,
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *WithdrawalHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBeneficiaryRequired):
		writeError(w, http.StatusBadRequest, "MISSING_BENEFICIARY", "Beneficiary is required")
	case errors.Is(err, service.ErrAmountNotPositive):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive")
	case errors.Is(err, service.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Withdrawal exceeds collected funds")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
