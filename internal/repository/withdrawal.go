package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/model"
)

// ErrWithdrawalNotFound is returned when a withdrawal cannot be located.
var ErrWithdrawalNotFound = errors.New("withdrawal not found")

// CreateWithdrawal inserts a new withdrawal record.
func (r *Repository) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, reference, organization_id, beneficiary, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		w.ID,
		w.Reference,
		w.OrganizationID,
		w.Beneficiary,
		w.Amount,
		w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

// GetWithdrawalByID retrieves a withdrawal by ID.
func (r *Repository) GetWithdrawalByID(ctx context.Context, id string) (*model.Withdrawal, error) {
	query := `
		SELECT id, reference, organization_id, beneficiary, amount, created_at
		FROM withdrawals
		WHERE id = $1
	`

	w, err := scanWithdrawal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}

	return w, nil
}

// ListWithdrawals returns an organization's withdrawals, newest first.
func (r *Repository) ListWithdrawals(ctx context.Context, organizationID string) ([]*model.Withdrawal, error) {
	query := `
		SELECT id, reference, organization_id, beneficiary, amount, created_at
		FROM withdrawals
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var ws []*model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		ws = append(ws, w)
	}

	return ws, rows.Err()
}

// SumWithdrawals totals the funds an organization has already moved out.
func (r *Repository) SumWithdrawals(ctx context.Context, organizationID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawals
		WHERE organization_id = $1
	`

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, organizationID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	return total, nil
}

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.Reference,
		&w.OrganizationID,
		&w.Beneficiary,
		&w.Amount,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
