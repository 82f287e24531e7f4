package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the settlement state of a payment.
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionSuccessful TransactionStatus = "successful"
	TransactionFailed     TransactionStatus = "failed"
)

// Transaction records one payment attempt against a cluster. The payer is
// identified by email only; payers are not platform users.
type Transaction struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference"`
	ClusterID string            `json:"cluster_id"`
	Email     string            `json:"email"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// IsSettled reports whether the transaction reached a terminal state.
func (t *Transaction) IsSettled() bool {
	return t.Status != TransactionPending
}

// InitiateTransactionRequest is the public payer-facing request body.
type InitiateTransactionRequest struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}
