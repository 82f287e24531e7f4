package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AcceptablePayment is the minimum fraction of a cluster's amount that a
// payer may settle in a single transaction.
type AcceptablePayment string

const (
	PaymentFull    AcceptablePayment = "full"
	PaymentHalf    AcceptablePayment = "half"
	PaymentQuarter AcceptablePayment = "quarter"
)

// IsValid reports whether the fraction is a known one.
func (p AcceptablePayment) IsValid() bool {
	switch p {
	case PaymentFull, PaymentHalf, PaymentQuarter:
		return true
	}
	return false
}

// Fraction returns the fraction of the cluster amount this setting allows.
func (p AcceptablePayment) Fraction() decimal.Decimal {
	switch p {
	case PaymentHalf:
		return decimal.New(5, -1) // 0.5
	case PaymentQuarter:
		return decimal.New(25, -2) // 0.25
	default:
		return decimal.New(1, 0)
	}
}

// ClusterStatus represents the lifecycle state of a cluster.
type ClusterStatus string

const (
	ClusterDraft   ClusterStatus = "draft"
	ClusterActive  ClusterStatus = "active"
	ClusterExpired ClusterStatus = "expired"
)

// Cluster is a payment collection campaign an organization runs to
// accept payments against a bill.
type Cluster struct {
	ID                   string            `json:"id"`
	OrganizationID       string            `json:"organization_id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	Amount               decimal.Decimal   `json:"amount"`
	MinAcceptablePayment AcceptablePayment `json:"min_acceptable_payment"`
	Status               ClusterStatus     `json:"status"`
	ExpiresAt            *time.Time        `json:"expires_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// MinAmount returns the smallest single payment the cluster accepts.
func (c *Cluster) MinAmount() decimal.Decimal {
	return c.Amount.Mul(c.MinAcceptablePayment.Fraction())
}

// IsOpen reports whether the cluster accepts payments at the given time.
func (c *Cluster) IsOpen(now time.Time) bool {
	if c.Status != ClusterActive {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return true
}

// CreateClusterRequest represents a request to create a cluster.
type CreateClusterRequest struct {
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	Amount               decimal.Decimal   `json:"amount"`
	MinAcceptablePayment AcceptablePayment `json:"min_acceptable_payment"`
	ExpiresAt            *time.Time        `json:"expires_at,omitempty"`
}

// UpdateClusterRequest represents a partial cluster update.
// Status transitions go through the deploy/teardown endpoints instead.
type UpdateClusterRequest struct {
	Name                 *string            `json:"name,omitempty"`
	Description          *string            `json:"description,omitempty"`
	Amount               *decimal.Decimal   `json:"amount,omitempty"`
	MinAcceptablePayment *AcceptablePayment `json:"min_acceptable_payment,omitempty"`
	ExpiresAt            *time.Time         `json:"expires_at,omitempty"`
}
