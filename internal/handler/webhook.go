package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/provider"
	"github.com/plixa/plixa/internal/service"
)

const maxCallbackBody = 64 * 1024

// WebhookHandler handles the payment provider's settlement callbacks.
type WebhookHandler struct {
	payments *service.PaymentService
	secret   string
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(payments *service.PaymentService, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		secret:   secret,
		logger:   logger,
	}
}

// callbackPayload is the provider's settlement notification body.
type callbackPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// ProviderCallback handles POST /payments/webhook.
// The body is authenticated with an HMAC signature over
// "{timestamp}.{body}" before anything is trusted.
func (h *WebhookHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read request body")
		return
	}

	signature := r.Header.Get(provider.HeaderSignature)
	timestamp, err := strconv.ParseInt(r.Header.Get(provider.HeaderTimestamp), 10, 64)
	if err != nil || signature == "" {
		h.logger.Warn("callback missing signature headers", "ip", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Missing or invalid signature")
		return
	}

	if err := provider.ValidateSignature(h.secret, signature, timestamp, body, provider.DefaultReplayWindow); err != nil {
		h.logger.Warn("callback signature rejected",
			"ip", r.RemoteAddr,
			"reason", err.Error(),
		)
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Missing or invalid signature")
		return
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid callback body")
		return
	}

	var status model.TransactionStatus
	switch payload.Status {
	case "successful", "success":
		status = model.TransactionSuccessful
	case "failed", "abandoned":
		status = model.TransactionFailed
	default:
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown settlement status")
		return
	}

	tx, err := h.payments.CompleteTransaction(r.Context(), payload.Reference, status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadySettled):
			// Redelivery of a settled callback is fine, ack it
			writeJSON(w, http.StatusOK, map[string]string{"status": "already settled"})
		case errors.Is(err, service.ErrTransactionNotFound):
			writeError(w, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Unknown transaction reference")
		default:
			h.logger.Error("callback processing failed", "reference", payload.Reference, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	h.logger.Info("callback_processed",
		"reference", tx.Reference,
		"status", string(tx.Status),
	)

	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
