package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal records funds an organization moved out of the platform.
type Withdrawal struct {
	ID             string          `json:"id"`
	Reference      string          `json:"reference"`
	OrganizationID string          `json:"organization_id"`
	Beneficiary    string          `json:"beneficiary"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateWithdrawalRequest represents a request to withdraw collected funds.
type CreateWithdrawalRequest struct {
	Beneficiary string          `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
}
