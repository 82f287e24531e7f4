package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/provider"
	"github.com/plixa/plixa/internal/service"
)

// ProviderVerifier fetches the authoritative status of a transaction from
// the payment provider.
type ProviderVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*provider.VerificationResult, error)
}

// TransactionHandler handles payment initiation, verification and listing.
type TransactionHandler struct {
	payments *service.PaymentService
	clusters *ClusterHandler
	verifier ProviderVerifier
	logger   *slog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
// verifier may be nil when no provider API is configured; verification
// requests then answer 503.
func NewTransactionHandler(payments *service.PaymentService, clusters *ClusterHandler, verifier ProviderVerifier, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		payments: payments,
		clusters: clusters,
		verifier: verifier,
		logger:   logger,
	}
}

// Initiate handles POST /api/v1/pay/{clusterID}.
// Public endpoint; payers are identified by email only.
func (h *TransactionHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "clusterID")
	if clusterID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Cluster ID is required")
		return
	}

	var req model.InitiateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	tx, err := h.payments.InitiateTransaction(r.Context(), clusterID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("transaction_initiated",
		"reference", tx.Reference,
		"cluster_id", tx.ClusterID,
	)

	writeJSON(w, http.StatusCreated, tx)
}

// Verify handles GET /api/v1/pay/verify/{reference}.
// Public endpoint payers poll after paying; references are unguessable.
// The provider's answer settles the transaction when the callback has not
// arrived yet (pull fallback for the webhook).
func (h *TransactionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "MISSING_REFERENCE", "Transaction reference is required")
		return
	}

	if h.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "Provider verification is not configured")
		return
	}

	result, err := h.verifier.VerifyTransaction(r.Context(), reference)
	if err != nil {
		if errors.Is(err, provider.ErrTransactionUnknown) {
			writeError(w, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found")
			return
		}
		h.logger.Error("provider verification failed", "reference", reference, "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_ERROR", "Could not verify the transaction with the provider")
		return
	}

	var status model.TransactionStatus
	switch result.Status {
	case "successful", "success":
		status = model.TransactionSuccessful
	case "failed", "abandoned":
		status = model.TransactionFailed
	default:
		// Still pending at the provider; report the local state unchanged.
		writeJSON(w, http.StatusOK, map[string]any{
			"reference": reference,
			"status":    model.TransactionPending,
		})
		return
	}

	tx, err := h.payments.CompleteTransaction(r.Context(), reference, status)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySettled) {
			tx, err = h.payments.Transaction(r.Context(), reference)
		}
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, tx)
}

// List handles GET /api/v1/organizations/{id}/clusters/{clusterID}/transactions.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.clusters.loadCluster(w, r)
	if !ok {
		return
	}

	txs, err := h.clusters.repo.ListTransactions(r.Context(), cluster.ID)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// handleServiceError maps service errors to HTTP responses.
func (h *TransactionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrClusterNotFound):
		writeError(w, http.StatusNotFound, "CLUSTER_NOT_FOUND", "Cluster not found")
	case errors.Is(err, service.ErrClusterClosed):
		writeError(w, http.StatusConflict, "CLUSTER_CLOSED", "Cluster is not accepting payments")
	case errors.Is(err, service.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, "MISSING_EMAIL", "Payer email is required")
	case errors.Is(err, service.ErrAmountNotPositive):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive")
	case errors.Is(err, service.ErrAmountBelowMinimum):
		writeError(w, http.StatusUnprocessableEntity, "AMOUNT_TOO_SMALL", "Amount is below the cluster minimum")
	case errors.Is(err, service.ErrAmountAboveTotal):
		writeError(w, http.StatusUnprocessableEntity, "AMOUNT_TOO_LARGE", "Amount exceeds the cluster total")
	case errors.Is(err, service.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
