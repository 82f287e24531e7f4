package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/audit"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/provider"
	"github.com/plixa/plixa/internal/repository"
	"github.com/plixa/plixa/internal/service"
)

const callbackSecret = "cbsec_test"

type callbackStore struct {
	cluster *model.Cluster
	tx      *model.Transaction
}

func (s *callbackStore) GetClusterByID(_ context.Context, id string) (*model.Cluster, error) {
	if s.cluster == nil || s.cluster.ID != id {
		return nil, repository.ErrClusterNotFound
	}
	return s.cluster, nil
}

func (s *callbackStore) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	s.tx = tx
	return nil
}

func (s *callbackStore) GetTransactionByReference(_ context.Context, reference string) (*model.Transaction, error) {
	if s.tx == nil || s.tx.Reference != reference {
		return nil, repository.ErrTransactionNotFound
	}
	cp := *s.tx
	return &cp, nil
}

func (s *callbackStore) SetTransactionStatus(_ context.Context, reference string, status model.TransactionStatus) error {
	if s.tx == nil || s.tx.Reference != reference || s.tx.Status != model.TransactionPending {
		return repository.ErrTransactionNotFound
	}
	s.tx.Status = status
	return nil
}

func (s *callbackStore) SumSuccessfulTransactions(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *callbackStore) SumClusterTransactions(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *callbackStore) CreateWithdrawal(_ context.Context, _ *model.Withdrawal) error {
	return nil
}

func (s *callbackStore) SumWithdrawals(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishAsync(_ audit.EventPayload) {}

func newCallbackHandler() (*WebhookHandler, *callbackStore) {
	store := &callbackStore{
		cluster: &model.Cluster{
			ID:                   "cluster-1",
			OrganizationID:       "org-1",
			Name:                 "Dues 2026",
			Amount:               decimal.NewFromInt(100),
			MinAcceptablePayment: model.PaymentFull,
			Status:               model.ClusterActive,
		},
		tx: &model.Transaction{
			ID:        "id-1",
			Reference: "txn_01ABC",
			ClusterID: "cluster-1",
			Email:     "payer@example.com",
			Amount:    decimal.NewFromInt(100),
			Status:    model.TransactionPending,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	payments := service.NewPaymentService(store, noopPublisher{}, nil, logger, nil)
	return NewWebhookHandler(payments, callbackSecret, logger), store
}

func signedRequest(t *testing.T, body string, timestamp int64, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(body))
	req.Header.Set(provider.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(provider.HeaderSignature, provider.GenerateSignature(secret, timestamp, []byte(body)))
	return req
}

func TestProviderCallback_Success(t *testing.T) {
	h, store := newCallbackHandler()

	body := `{"reference":"txn_01ABC","status":"successful"}`
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Unix(), callbackSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if store.tx.Status != model.TransactionSuccessful {
		t.Errorf("transaction status = %s, want successful", store.tx.Status)
	}
}

func TestProviderCallback_RedeliveryIsAcked(t *testing.T) {
	h, _ := newCallbackHandler()

	body := `{"reference":"txn_01ABC","status":"successful"}`
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Unix(), callbackSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Unix(), callbackSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rec.Code)
	}
}

func TestProviderCallback_BadSignature(t *testing.T) {
	h, store := newCallbackHandler()

	body := `{"reference":"txn_01ABC","status":"successful"}`
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Unix(), "wrong_secret"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if store.tx.Status != model.TransactionPending {
		t.Error("transaction must stay pending after rejected callback")
	}
}

func TestProviderCallback_MissingHeaders(t *testing.T) {
	h, _ := newCallbackHandler()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProviderCallback_StaleTimestamp(t *testing.T) {
	h, _ := newCallbackHandler()

	body := `{"reference":"txn_01ABC","status":"successful"}`
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Add(-time.Hour).Unix(), callbackSecret))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProviderCallback_UnknownReference(t *testing.T) {
	h, _ := newCallbackHandler()

	body := `{"reference":"txn_unknown","status":"failed"}`
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Unix(), callbackSecret))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProviderCallback_UnknownStatus(t *testing.T) {
	h, _ := newCallbackHandler()

	body := `{"reference":"txn_01ABC","status":"maybe"}`
	rec := httptest.NewRecorder()
	h.ProviderCallback(rec, signedRequest(t, body, time.Now().Unix(), callbackSecret))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
