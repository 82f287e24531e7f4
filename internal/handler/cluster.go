package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/plixa/plixa/internal/audit"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
	"github.com/plixa/plixa/internal/service"
)

// ClusterHandler handles cluster lifecycle endpoints.
type ClusterHandler struct {
	repo     *repository.Repository
	orgs     *OrganizationHandler
	payments *service.PaymentService
	events   service.Publisher
	logger   *slog.Logger
}

// NewClusterHandler creates a new ClusterHandler.
func NewClusterHandler(repo *repository.Repository, orgs *OrganizationHandler, payments *service.PaymentService, events service.Publisher, logger *slog.Logger) *ClusterHandler {
	return &ClusterHandler{
		repo:     repo,
		orgs:     orgs,
		payments: payments,
		events:   events,
		logger:   logger,
	}
}

// Create handles POST /api/v1/organizations/{id}/clusters.
func (h *ClusterHandler) Create(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return
	}

	var req model.CreateClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "Cluster name is required")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive")
		return
	}
	if req.MinAcceptablePayment == "" {
		req.MinAcceptablePayment = model.PaymentFull
	}
	if !req.MinAcceptablePayment.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_PAYMENT_FRACTION", "min_acceptable_payment must be full, half or quarter")
		return
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		writeError(w, http.StatusUnprocessableEntity, "EXPIRES_IN_PAST", "Expiry date must be in the future")
		return
	}

	cluster := &model.Cluster{
		ID:                   ulid.Make().String(),
		OrganizationID:       org.ID,
		Name:                 req.Name,
		Description:          req.Description,
		Amount:               req.Amount,
		MinAcceptablePayment: req.MinAcceptablePayment,
		Status:               model.ClusterDraft,
		ExpiresAt:            req.ExpiresAt,
		CreatedAt:            time.Now().UTC(),
	}

	if err := h.repo.CreateCluster(r.Context(), cluster); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("cluster_created",
		"cluster_id", cluster.ID,
		"organization_id", org.ID,
	)

	writeJSON(w, http.StatusCreated, cluster)
}

// List handles GET /api/v1/organizations/{id}/clusters.
func (h *ClusterHandler) List(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return
	}

	clusters, err := h.repo.ListClusters(r.Context(), org.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

// Get handles GET /api/v1/organizations/{id}/clusters/{clusterID}.
func (h *ClusterHandler) Get(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.loadCluster(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, cluster)
}

// Update handles PATCH /api/v1/organizations/{id}/clusters/{clusterID}.
// Deployed clusters keep their amount; only drafts are fully editable.
func (h *ClusterHandler) Update(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.loadCluster(w, r)
	if !ok {
		return
	}

	var req model.UpdateClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if cluster.Status != model.ClusterDraft && (req.Amount != nil || req.MinAcceptablePayment != nil) {
		writeError(w, http.StatusConflict, "CLUSTER_DEPLOYED", "Amount cannot change after deployment")
		return
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive")
		return
	}
	if req.MinAcceptablePayment != nil && !req.MinAcceptablePayment.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_PAYMENT_FRACTION", "min_acceptable_payment must be full, half or quarter")
		return
	}

	if err := h.repo.UpdateCluster(r.Context(), cluster.ID, &req); err != nil {
		h.handleError(w, err)
		return
	}

	updated, err := h.repo.GetClusterByID(r.Context(), cluster.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("cluster_updated", "cluster_id", cluster.ID)

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/organizations/{id}/clusters/{clusterID}.
func (h *ClusterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.loadCluster(w, r)
	if !ok {
		return
	}

	if cluster.Status == model.ClusterActive {
		writeError(w, http.StatusConflict, "CLUSTER_ACTIVE", "Tear down the cluster before deleting it")
		return
	}

	if err := h.repo.DeleteCluster(r.Context(), cluster.ID); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("cluster_deleted", "cluster_id", cluster.ID)

	w.WriteHeader(http.StatusNoContent)
}

// Deploy handles POST /api/v1/organizations/{id}/clusters/{clusterID}/deploy.
// Deploying opens the cluster for payments.
func (h *ClusterHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.loadCluster(w, r)
	if !ok {
		return
	}

	if cluster.Status != model.ClusterDraft {
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", "Only draft clusters can be deployed")
		return
	}
	if cluster.ExpiresAt != nil && cluster.ExpiresAt.Before(time.Now()) {
		writeError(w, http.StatusConflict, "CLUSTER_EXPIRED", "Cluster expiry date has passed")
		return
	}

	if err := h.repo.SetClusterStatus(r.Context(), cluster.ID, model.ClusterActive); err != nil {
		h.handleError(w, err)
		return
	}
	cluster.Status = model.ClusterActive

	h.logger.Info("cluster_deployed", "cluster_id", cluster.ID)
	h.events.PublishAsync(audit.EventPayload{
		Type:           audit.EventClusterDeployed,
		OrganizationID: cluster.OrganizationID,
		ClusterID:      cluster.ID,
		OccurredAt:     time.Now().UnixMilli(),
	})

	writeJSON(w, http.StatusOK, cluster)
}

// Teardown handles POST /api/v1/organizations/{id}/clusters/{clusterID}/teardown.
// Tearing down closes the cluster to further payments.
func (h *ClusterHandler) Teardown(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.loadCluster(w, r)
	if !ok {
		return
	}

	if cluster.Status != model.ClusterActive {
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", "Only active clusters can be torn down")
		return
	}

	if err := h.repo.SetClusterStatus(r.Context(), cluster.ID, model.ClusterExpired); err != nil {
		h.handleError(w, err)
		return
	}
	cluster.Status = model.ClusterExpired

	h.logger.Info("cluster_torn_down", "cluster_id", cluster.ID)
	h.events.PublishAsync(audit.EventPayload{
		Type:           audit.EventClusterTornDown,
		OrganizationID: cluster.OrganizationID,
		ClusterID:      cluster.ID,
		OccurredAt:     time.Now().UnixMilli(),
	})

	writeJSON(w, http.StatusOK, cluster)
}

// Balance handles GET /api/v1/organizations/{id}/clusters/{clusterID}/balance.
func (h *ClusterHandler) Balance(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.loadCluster(w, r)
	if !ok {
		return
	}

	balance, err := h.payments.ClusterBalance(r.Context(), cluster.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cluster_id": cluster.ID,
		"collected":  balance,
	})
}

// loadCluster resolves the cluster from the URL, enforcing that it belongs
// to an organization the caller can manage.
func (h *ClusterHandler) loadCluster(w http.ResponseWriter, r *http.Request) (*model.Cluster, bool) {
	org, ok := h.orgs.loadAccessible(w, r)
	if !ok {
		return nil, false
	}

	clusterID := chi.URLParam(r, "clusterID")
	if clusterID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Cluster ID is required")
		return nil, false
	}

	cluster, err := h.repo.GetClusterByID(r.Context(), clusterID)
	if err != nil {
		h.handleError(w, err)
		return nil, false
	}
	if cluster.OrganizationID != org.ID {
		writeError(w, http.StatusNotFound, "CLUSTER_NOT_FOUND", "Cluster not found")
		return nil, false
	}

	return cluster, true
}

// handleError maps repository errors to HTTP responses.
func (h *ClusterHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrClusterNotFound):
		writeError(w, http.StatusNotFound, "CLUSTER_NOT_FOUND", "Cluster not found")
	case errors.Is(err, repository.ErrClusterNameExists):
		writeError(w, http.StatusConflict, "NAME_TAKEN", "Cluster name already used in this organization")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
