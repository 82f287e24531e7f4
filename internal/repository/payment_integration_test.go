//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/testutil"
)

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	user := testutil.NewTestUser(t, "create@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}

	if retrieved.ID != user.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, user.ID)
	}
	if retrieved.Type != model.TypePlatformUser {
		t.Errorf("Type mismatch: got %q, want %q", retrieved.Type, model.TypePlatformUser)
	}
}

func TestIntegrationUserRepository_DuplicateEmail(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	user1 := testutil.NewTestUser(t, "dup@example.com")
	user2 := testutil.NewTestUser(t, "dup@example.com")
	user2.ID = testutil.UniqueID("user")

	if err := repo.CreateUser(ctx, user1); err != nil {
		t.Fatalf("CreateUser (first) failed: %v", err)
	}

	err := repo.CreateUser(ctx, user2)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationOrganizationRepository_Membership(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	member := testutil.NewTestUser(t, "member@example.com")
	outsider := testutil.NewTestUser(t, "outsider@example.com")
	for _, u := range []*model.User{member, outsider} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	org := testutil.NewTestOrganization(t, testutil.UniqueID("union"), member.ID)
	if err := repo.CreateOrganization(ctx, org); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}

	visible, err := repo.ListOrganizationsForUser(ctx, member.ID)
	if err != nil {
		t.Fatalf("ListOrganizationsForUser failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != org.ID {
		t.Errorf("member should see exactly their organization, got %d", len(visible))
	}

	hidden, err := repo.ListOrganizationsForUser(ctx, outsider.ID)
	if err != nil {
		t.Fatalf("ListOrganizationsForUser failed: %v", err)
	}
	if len(hidden) != 0 {
		t.Errorf("outsider should see no organizations, got %d", len(hidden))
	}
}

func TestIntegrationTransactionRepository_SettleOnce(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	org := testutil.NewTestOrganization(t, testutil.UniqueID("union"))
	if err := repo.CreateOrganization(ctx, org); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	cluster := testutil.NewTestCluster(t, org.ID, 1000)
	if err := repo.CreateCluster(ctx, cluster); err != nil {
		t.Fatalf("CreateCluster failed: %v", err)
	}
	txn := testutil.NewTestTransaction(t, cluster.ID, 1000)
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	if err := repo.SetTransactionStatus(ctx, txn.Reference, model.TransactionSuccessful); err != nil {
		t.Fatalf("SetTransactionStatus failed: %v", err)
	}

	// A settled transaction never transitions again.
	err := repo.SetTransactionStatus(ctx, txn.Reference, model.TransactionFailed)
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound on second settlement, got: %v", err)
	}

	retrieved, err := repo.GetTransactionByReference(ctx, txn.Reference)
	if err != nil {
		t.Fatalf("GetTransactionByReference failed: %v", err)
	}
	if retrieved.Status != model.TransactionSuccessful {
		t.Errorf("Status = %q, want %q", retrieved.Status, model.TransactionSuccessful)
	}
}

func TestIntegrationBalances(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	org := testutil.NewTestOrganization(t, testutil.UniqueID("union"))
	if err := repo.CreateOrganization(ctx, org); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	cluster := testutil.NewTestCluster(t, org.ID, 500)
	if err := repo.CreateCluster(ctx, cluster); err != nil {
		t.Fatalf("CreateCluster failed: %v", err)
	}

	amounts := []int64{500, 500, 300}
	for i, amount := range amounts {
		txn := testutil.NewTestTransaction(t, cluster.ID, amount)
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		// Settle all but the last; pending rows stay out of the balance.
		if i < 2 {
			if err := repo.SetTransactionStatus(ctx, txn.Reference, model.TransactionSuccessful); err != nil {
				t.Fatalf("SetTransactionStatus failed: %v", err)
			}
		}
	}

	collected, err := repo.SumSuccessfulTransactions(ctx, org.ID)
	if err != nil {
		t.Fatalf("SumSuccessfulTransactions failed: %v", err)
	}
	if !collected.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("collected = %s, want 1000", collected)
	}

	withdrawal := &model.Withdrawal{
		ID:             testutil.UniqueID("wdl"),
		Reference:      testutil.UniqueID("wdl_ref"),
		OrganizationID: org.ID,
		Beneficiary:    "Union Treasurer",
		Amount:         decimal.NewFromInt(400),
		CreatedAt:      cluster.CreatedAt,
	}
	if err := repo.CreateWithdrawal(ctx, withdrawal); err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}

	withdrawn, err := repo.SumWithdrawals(ctx, org.ID)
	if err != nil {
		t.Fatalf("SumWithdrawals failed: %v", err)
	}
	if !withdrawn.Equal(decimal.NewFromInt(400)) {
		t.Errorf("withdrawn = %s, want 400", withdrawn)
	}
}

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.Migrate(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.TruncateAll(ctx, repo.Pool()); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return ctx, repo
}
