// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateAll wipes every application table between tests.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE audit_log, withdrawals, transactions, clusters, organizations, users CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a platform user with sensible defaults.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:           UniqueID("user"),
		Type:         model.TypePlatformUser,
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: fmt.Sprintf("hash-%d", now.UnixNano()),
		CreatedAt:    now,
	}
}

// NewTestOrganization creates an organization with the given members.
func NewTestOrganization(t testing.TB, name string, members ...string) *model.Organization {
	t.Helper()
	return &model.Organization{
		ID:        UniqueID("org"),
		Name:      name,
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTestCluster creates an active cluster owned by the organization.
func NewTestCluster(t testing.TB, organizationID string, amount int64) *model.Cluster {
	t.Helper()
	return &model.Cluster{
		ID:                   UniqueID("cluster"),
		OrganizationID:       organizationID,
		Name:                 UniqueID("cluster-name"),
		Amount:               decimal.NewFromInt(amount),
		MinAcceptablePayment: model.PaymentFull,
		Status:               model.ClusterActive,
		CreatedAt:            time.Now().UTC(),
	}
}

// NewTestTransaction creates a pending transaction against a cluster.
func NewTestTransaction(t testing.TB, clusterID string, amount int64) *model.Transaction {
	t.Helper()
	return &model.Transaction{
		ID:        UniqueID("txn"),
		Reference: UniqueID("txn_ref"),
		ClusterID: clusterID,
		Email:     "payer@example.com",
		Amount:    decimal.NewFromInt(amount),
		Status:    model.TransactionPending,
		CreatedAt: time.Now().UTC(),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
