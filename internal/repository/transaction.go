package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/model"
)

// Common errors for transaction repository operations.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReferenceExists     = errors.New("transaction reference already exists")
)

// CreateTransaction inserts a new pending transaction.
func (r *Repository) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, reference, cluster_id, email, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		tx.ID,
		tx.Reference,
		tx.ClusterID,
		tx.Email,
		tx.Amount,
		tx.Status,
		tx.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrReferenceExists
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetTransactionByReference retrieves a transaction by its provider reference.
func (r *Repository) GetTransactionByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	query := `
		SELECT id, reference, cluster_id, email, amount, status, created_at
		FROM transactions
		WHERE reference = $1
	`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListTransactions returns a cluster's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, clusterID string) ([]*model.Transaction, error) {
	query := `
		SELECT id, reference, cluster_id, email, amount, status, created_at
		FROM transactions
		WHERE cluster_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// SetTransactionStatus records the settlement outcome for a pending
// transaction. Settled transactions are never updated again.
func (r *Repository) SetTransactionStatus(ctx context.Context, reference string, status model.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = now()
		WHERE reference = $1 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, reference, status)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// SumSuccessfulTransactions totals the settled payments collected across
// all of an organization's clusters.
func (r *Repository) SumSuccessfulTransactions(ctx context.Context, organizationID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN clusters c ON c.id = t.cluster_id
		WHERE c.organization_id = $1 AND t.status = 'successful'
	`

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, organizationID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return total, nil
}

// SumClusterTransactions totals the settled payments for one cluster.
func (r *Repository) SumClusterTransactions(ctx context.Context, clusterID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE cluster_id = $1 AND status = 'successful'
	`

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, clusterID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return total, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.ClusterID,
		&tx.Email,
		&tx.Amount,
		&tx.Status,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
