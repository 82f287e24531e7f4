// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/audit"
	"github.com/plixa/plixa/internal/metrics"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
)

// Service errors.
var (
	ErrClusterNotFound    = errors.New("cluster not found")
	ErrClusterClosed      = errors.New("cluster is not accepting payments")
	ErrAmountNotPositive  = errors.New("amount must be positive")
	ErrAmountBelowMinimum = errors.New("amount below cluster minimum")
	ErrAmountAboveTotal   = errors.New("amount exceeds cluster total")
	ErrEmailRequired      = errors.New("payer email is required")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadySettled     = errors.New("transaction already settled")
	ErrInvalidStatus      = errors.New("invalid settlement status")
	ErrBeneficiaryRequired = errors.New("beneficiary is required")
	ErrInsufficientFunds  = errors.New("insufficient collected funds")
)

// Store is the persistence surface the payment service needs.
// *repository.Repository satisfies it.
type Store interface {
	GetClusterByID(ctx context.Context, id string) (*model.Cluster, error)
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	GetTransactionByReference(ctx context.Context, reference string) (*model.Transaction, error)
	SetTransactionStatus(ctx context.Context, reference string, status model.TransactionStatus) error
	SumSuccessfulTransactions(ctx context.Context, organizationID string) (decimal.Decimal, error)
	SumClusterTransactions(ctx context.Context, clusterID string) (decimal.Decimal, error)
	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error
	SumWithdrawals(ctx context.Context, organizationID string) (decimal.Decimal, error)
}

// Publisher enqueues payment events for the audit trail.
type Publisher interface {
	PublishAsync(event audit.EventPayload)
}

// ReceiptSender delivers payment receipts. Failures are logged, never
// surfaced to the payer.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, email, reference, amount, clusterName string) error
}

// PaymentService handles transaction and withdrawal business logic.
type PaymentService struct {
	store    Store
	events   Publisher
	receipts ReceiptSender
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store Store, events Publisher, receipts ReceiptSender, logger *slog.Logger, recorder metrics.Recorder) *PaymentService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PaymentService{
		store:    store,
		events:   events,
		receipts: receipts,
		logger:   logger.With("component", "service.payment"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// InitiateTransaction records a pending payment against an open cluster.
func (s *PaymentService) InitiateTransaction(ctx context.Context, clusterID string, req *model.InitiateTransactionRequest) (*model.Transaction, error) {
	if req.Email == "" {
		return nil, ErrEmailRequired
	}
	if !req.Amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	cluster, err := s.store.GetClusterByID(ctx, clusterID)
	if err != nil {
		if errors.Is(err, repository.ErrClusterNotFound) {
			return nil, ErrClusterNotFound
		}
		return nil, err
	}

	if !cluster.IsOpen(s.now()) {
		return nil, ErrClusterClosed
	}
	if req.Amount.LessThan(cluster.MinAmount()) {
		return nil, ErrAmountBelowMinimum
	}
	if req.Amount.GreaterThan(cluster.Amount) {
		return nil, ErrAmountAboveTotal
	}

	tx := &model.Transaction{
		ID:        ulid.Make().String(),
		Reference: "txn_" + ulid.Make().String(),
		ClusterID: cluster.ID,
		Email:     req.Email,
		Amount:    req.Amount,
		Status:    model.TransactionPending,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.metrics.IncTransactionRecorded(string(tx.Status))
	s.events.PublishAsync(audit.EventPayload{
		Type:           audit.EventTransactionInitiated,
		Reference:      tx.Reference,
		OrganizationID: cluster.OrganizationID,
		ClusterID:      cluster.ID,
		ActorEmail:     tx.Email,
		Amount:         tx.Amount.StringFixed(2),
		OccurredAt:     tx.CreatedAt.UnixMilli(),
	})

	return tx, nil
}

// CompleteTransaction records the settlement outcome reported by the
// payment provider. A receipt goes out on success, best effort.
func (s *PaymentService) CompleteTransaction(ctx context.Context, reference string, status model.TransactionStatus) (*model.Transaction, error) {
	if status != model.TransactionSuccessful && status != model.TransactionFailed {
		return nil, ErrInvalidStatus
	}

	tx, err := s.store.GetTransactionByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if tx.IsSettled() {
		return nil, ErrAlreadySettled
	}

	if err := s.store.SetTransactionStatus(ctx, reference, status); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			// Lost the race with another settlement
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("failed to settle transaction: %w", err)
	}
	tx.Status = status

	s.metrics.IncTransactionRecorded(string(status))

	cluster, err := s.store.GetClusterByID(ctx, tx.ClusterID)
	if err != nil {
		s.logger.Warn("settled transaction references unknown cluster",
			"reference", reference,
			"cluster_id", tx.ClusterID,
			"error", err,
		)
		return tx, nil
	}

	s.events.PublishAsync(audit.EventPayload{
		Type:           audit.EventTransactionSettled,
		Reference:      tx.Reference,
		OrganizationID: cluster.OrganizationID,
		ClusterID:      cluster.ID,
		ActorEmail:     tx.Email,
		Amount:         tx.Amount.StringFixed(2),
		OccurredAt:     s.now().UnixMilli(),
	})

	if status == model.TransactionSuccessful && s.receipts != nil {
		if err := s.receipts.SendReceipt(ctx, tx.Email, tx.Reference, tx.Amount.StringFixed(2), cluster.Name); err != nil {
			s.logger.Warn("failed to send receipt",
				"reference", tx.Reference,
				"error", err,
			)
		}
	}

	return tx, nil
}

// Transaction returns the local record for a reference.
func (s *PaymentService) Transaction(ctx context.Context, reference string) (*model.Transaction, error) {
	tx, err := s.store.GetTransactionByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ClusterBalance returns the settled amount collected by one cluster.
func (s *PaymentService) ClusterBalance(ctx context.Context, clusterID string) (decimal.Decimal, error) {
	return s.store.SumClusterTransactions(ctx, clusterID)
}

// OrganizationBalance returns collected funds minus prior withdrawals.
func (s *PaymentService) OrganizationBalance(ctx context.Context, organizationID string) (decimal.Decimal, error) {
	collected, err := s.store.SumSuccessfulTransactions(ctx, organizationID)
	if err != nil {
		return decimal.Zero, err
	}
	withdrawn, err := s.store.SumWithdrawals(ctx, organizationID)
	if err != nil {
		return decimal.Zero, err
	}
	return collected.Sub(withdrawn), nil
}

// CreateWithdrawal moves collected funds out to a beneficiary account.
func (s *PaymentService) CreateWithdrawal(ctx context.Context, organizationID string, req *model.CreateWithdrawalRequest) (*model.Withdrawal, error) {
	if req.Beneficiary == "" {
		return nil, ErrBeneficiaryRequired
	}
	if !req.Amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	balance, err := s.OrganizationBalance(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}
	if req.Amount.GreaterThan(balance) {
		return nil, ErrInsufficientFunds
	}

	w := &model.Withdrawal{
		ID:             ulid.Make().String(),
		Reference:      "wdl_" + ulid.Make().String(),
		OrganizationID: organizationID,
		Beneficiary:    req.Beneficiary,
		Amount:         req.Amount,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.store.CreateWithdrawal(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	s.metrics.IncWithdrawalCreated()
	s.events.PublishAsync(audit.EventPayload{
		Type:           audit.EventWithdrawalCreated,
		Reference:      w.Reference,
		OrganizationID: organizationID,
		Amount:         w.Amount.StringFixed(2),
		OccurredAt:     w.CreatedAt.UnixMilli(),
	})

	return w, nil
}
