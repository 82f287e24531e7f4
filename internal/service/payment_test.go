package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/audit"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
)

type fakeStore struct {
	clusters     map[string]*model.Cluster
	transactions map[string]*model.Transaction
	withdrawals  []*model.Withdrawal
	collected    decimal.Decimal
	withdrawn    decimal.Decimal
	createErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clusters:     make(map[string]*model.Cluster),
		transactions: make(map[string]*model.Transaction),
		collected:    decimal.Zero,
		withdrawn:    decimal.Zero,
	}
}

func (f *fakeStore) GetClusterByID(_ context.Context, id string) (*model.Cluster, error) {
	c, ok := f.clusters[id]
	if !ok {
		return nil, repository.ErrClusterNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.transactions[tx.Reference] = tx
	return nil
}

func (f *fakeStore) GetTransactionByReference(_ context.Context, reference string) (*model.Transaction, error) {
	tx, ok := f.transactions[reference]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeStore) SetTransactionStatus(_ context.Context, reference string, status model.TransactionStatus) error {
	tx, ok := f.transactions[reference]
	if !ok || tx.Status != model.TransactionPending {
		return repository.ErrTransactionNotFound
	}
	tx.Status = status
	return nil
}

func (f *fakeStore) SumSuccessfulTransactions(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.collected, nil
}

func (f *fakeStore) SumClusterTransactions(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.collected, nil
}

func (f *fakeStore) CreateWithdrawal(_ context.Context, w *model.Withdrawal) error {
	f.withdrawals = append(f.withdrawals, w)
	return nil
}

func (f *fakeStore) SumWithdrawals(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.withdrawn, nil
}

type fakePublisher struct {
	events []audit.EventPayload
}

func (f *fakePublisher) PublishAsync(event audit.EventPayload) {
	f.events = append(f.events, event)
}

type fakeReceipts struct {
	sent []string
	err  error
}

func (f *fakeReceipts) SendReceipt(_ context.Context, email, _, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func testService(store *fakeStore) (*PaymentService, *fakePublisher, *fakeReceipts) {
	pub := &fakePublisher{}
	rcpt := &fakeReceipts{}
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	return NewPaymentService(store, pub, rcpt, logger, nil), pub, rcpt
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func openCluster() *model.Cluster {
	return &model.Cluster{
		ID:                   "cluster-1",
		OrganizationID:       "org-1",
		Name:                 "Dues 2026",
		Amount:               decimal.NewFromInt(100),
		MinAcceptablePayment: model.PaymentHalf,
		Status:               model.ClusterActive,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestInitiateTransaction(t *testing.T) {
	tests := []struct {
		name    string
		cluster func() *model.Cluster
		req     model.InitiateTransactionRequest
		wantErr error
	}{
		{
			name:    "full payment accepted",
			cluster: openCluster,
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(100)},
		},
		{
			name:    "half payment accepted at minimum",
			cluster: openCluster,
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(50)},
		},
		{
			name:    "below minimum rejected",
			cluster: openCluster,
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(49)},
			wantErr: ErrAmountBelowMinimum,
		},
		{
			name:    "above cluster total rejected",
			cluster: openCluster,
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(101)},
			wantErr: ErrAmountAboveTotal,
		},
		{
			name:    "zero amount rejected",
			cluster: openCluster,
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.Zero},
			wantErr: ErrAmountNotPositive,
		},
		{
			name:    "missing email rejected",
			cluster: openCluster,
			req:     model.InitiateTransactionRequest{Amount: decimal.NewFromInt(100)},
			wantErr: ErrEmailRequired,
		},
		{
			name: "draft cluster rejected",
			cluster: func() *model.Cluster {
				c := openCluster()
				c.Status = model.ClusterDraft
				return c
			},
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(100)},
			wantErr: ErrClusterClosed,
		},
		{
			name: "expired cluster rejected",
			cluster: func() *model.Cluster {
				c := openCluster()
				past := time.Now().Add(-time.Hour)
				c.ExpiresAt = &past
				return c
			},
			req:     model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(100)},
			wantErr: ErrClusterClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			cluster := tt.cluster()
			store.clusters[cluster.ID] = cluster
			svc, pub, _ := testService(store)

			tx, err := svc.InitiateTransaction(context.Background(), cluster.ID, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("InitiateTransaction() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(store.transactions) != 0 {
					t.Error("no transaction should be recorded on failure")
				}
				return
			}

			if tx.Status != model.TransactionPending {
				t.Errorf("status = %s, want pending", tx.Status)
			}
			if tx.Reference == "" {
				t.Error("reference must be generated")
			}
			if len(pub.events) != 1 || pub.events[0].Type != audit.EventTransactionInitiated {
				t.Errorf("expected one initiated event, got %+v", pub.events)
			}
		})
	}
}

func TestInitiateTransactionUnknownCluster(t *testing.T) {
	svc, _, _ := testService(newFakeStore())

	req := model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(10)}
	_, err := svc.InitiateTransaction(context.Background(), "nope", &req)
	if !errors.Is(err, ErrClusterNotFound) {
		t.Fatalf("error = %v, want ErrClusterNotFound", err)
	}
}

func TestCompleteTransaction(t *testing.T) {
	store := newFakeStore()
	cluster := openCluster()
	store.clusters[cluster.ID] = cluster
	svc, pub, rcpt := testService(store)

	req := model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(100)}
	tx, err := svc.InitiateTransaction(context.Background(), cluster.ID, &req)
	if err != nil {
		t.Fatalf("InitiateTransaction() error = %v", err)
	}

	settled, err := svc.CompleteTransaction(context.Background(), tx.Reference, model.TransactionSuccessful)
	if err != nil {
		t.Fatalf("CompleteTransaction() error = %v", err)
	}
	if settled.Status != model.TransactionSuccessful {
		t.Errorf("status = %s, want successful", settled.Status)
	}
	if len(rcpt.sent) != 1 || rcpt.sent[0] != "payer@example.com" {
		t.Errorf("receipt not sent: %v", rcpt.sent)
	}
	if len(pub.events) != 2 || pub.events[1].Type != audit.EventTransactionSettled {
		t.Errorf("expected settled event, got %+v", pub.events)
	}

	// Second settlement attempt must be rejected
	if _, err := svc.CompleteTransaction(context.Background(), tx.Reference, model.TransactionFailed); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("error = %v, want ErrAlreadySettled", err)
	}
}

func TestCompleteTransactionReceiptFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	cluster := openCluster()
	store.clusters[cluster.ID] = cluster
	svc, _, rcpt := testService(store)
	rcpt.err = errors.New("smtp down")

	req := model.InitiateTransactionRequest{Email: "payer@example.com", Amount: decimal.NewFromInt(100)}
	tx, err := svc.InitiateTransaction(context.Background(), cluster.ID, &req)
	if err != nil {
		t.Fatalf("InitiateTransaction() error = %v", err)
	}

	if _, err := svc.CompleteTransaction(context.Background(), tx.Reference, model.TransactionSuccessful); err != nil {
		t.Fatalf("receipt failure must not fail settlement: %v", err)
	}
}

func TestCompleteTransactionInvalidStatus(t *testing.T) {
	svc, _, _ := testService(newFakeStore())

	if _, err := svc.CompleteTransaction(context.Background(), "txn_x", model.TransactionPending); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("error = %v, want ErrInvalidStatus", err)
	}
}

func TestCreateWithdrawal(t *testing.T) {
	tests := []struct {
		name      string
		collected int64
		withdrawn int64
		req       model.CreateWithdrawalRequest
		wantErr   error
	}{
		{
			name:      "withdrawal within balance",
			collected: 500,
			withdrawn: 100,
			req:       model.CreateWithdrawalRequest{Beneficiary: "GTB-0123456789", Amount: decimal.NewFromInt(400)},
		},
		{
			name:      "withdrawal above balance rejected",
			collected: 500,
			withdrawn: 100,
			req:       model.CreateWithdrawalRequest{Beneficiary: "GTB-0123456789", Amount: decimal.NewFromInt(401)},
			wantErr:   ErrInsufficientFunds,
		},
		{
			name:      "missing beneficiary rejected",
			collected: 500,
			req:       model.CreateWithdrawalRequest{Amount: decimal.NewFromInt(10)},
			wantErr:   ErrBeneficiaryRequired,
		},
		{
			name:      "negative amount rejected",
			collected: 500,
			req:       model.CreateWithdrawalRequest{Beneficiary: "GTB-0123456789", Amount: decimal.NewFromInt(-5)},
			wantErr:   ErrAmountNotPositive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.collected = decimal.NewFromInt(tt.collected)
			store.withdrawn = decimal.NewFromInt(tt.withdrawn)
			svc, pub, _ := testService(store)

			w, err := svc.CreateWithdrawal(context.Background(), "org-1", &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateWithdrawal() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(store.withdrawals) != 0 {
					t.Error("no withdrawal should be recorded on failure")
				}
				return
			}

			if w.Reference == "" {
				t.Error("reference must be generated")
			}
			if len(pub.events) != 1 || pub.events[0].Type != audit.EventWithdrawalCreated {
				t.Errorf("expected withdrawal event, got %+v", pub.events)
			}
		})
	}
}

func TestOrganizationBalance(t *testing.T) {
	store := newFakeStore()
	store.collected = decimal.NewFromInt(750)
	store.withdrawn = decimal.NewFromInt(200)
	svc, _, _ := testService(store)

	balance, err := svc.OrganizationBalance(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("OrganizationBalance() error = %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(550)) {
		t.Errorf("balance = %s, want 550", balance)
	}
}
