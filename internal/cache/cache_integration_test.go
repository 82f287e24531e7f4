//go:build integration

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/testutil"
)

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	cacheClient, err := New(ctx, redisURL)
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = cacheClient.Close()
	})

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return ctx, cacheClient
}

func TestIntegrationAuthContextCache_RoundTrip(t *testing.T) {
	ctx, cacheClient := newCacheTestEnv(t)

	key := TokenCacheKey("some-bearer-token")
	authCtx := &model.AuthContext{
		UserID: "user-1",
		Type:   model.TypeStaff,
		Scopes: []string{model.ScopeOrganizationRead, model.ScopeOrganizationWrite},
	}

	// Miss before set
	got, err := cacheClient.GetAuthContext(ctx, key)
	if err != nil {
		t.Fatalf("GetAuthContext failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected cache miss before set")
	}

	if err := cacheClient.SetAuthContext(ctx, key, authCtx); err != nil {
		t.Fatalf("SetAuthContext failed: %v", err)
	}

	got, err = cacheClient.GetAuthContext(ctx, key)
	if err != nil {
		t.Fatalf("GetAuthContext failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cache hit after set")
	}
	if got.UserID != authCtx.UserID || got.Type != authCtx.Type {
		t.Errorf("cached context mismatch: got %+v, want %+v", got, authCtx)
	}
	if len(got.Scopes) != 2 {
		t.Errorf("Scopes length = %d, want 2", len(got.Scopes))
	}

	if err := cacheClient.DeleteAuthContext(ctx, key); err != nil {
		t.Fatalf("DeleteAuthContext failed: %v", err)
	}

	got, err = cacheClient.GetAuthContext(ctx, key)
	if err != nil {
		t.Fatalf("GetAuthContext failed: %v", err)
	}
	if got != nil {
		t.Error("expected cache miss after delete")
	}
}

// TestIntegrationUserRateLimitConcurrency verifies the token bucket under
// concurrent load.
func TestIntegrationUserRateLimitConcurrency(t *testing.T) {
	ctx, cacheClient := newCacheTestEnv(t)

	userID := "user-concurrent"
	rpm := 10
	burst := 5

	var allowed, rejected int64

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				result, err := cacheClient.CheckUserRateLimit(ctx, userID, rpm, burst)
				if err != nil {
					t.Errorf("CheckUserRateLimit error: %v", err)
					return
				}
				if result.Allowed {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}

	wg.Wait()

	total := allowed + rejected
	t.Logf("Concurrency test: %d allowed, %d rejected (total: %d)", allowed, rejected, total)

	if allowed > int64(burst+rpm) {
		t.Errorf("Too many requests allowed: %d (expected <= %d)", allowed, burst+rpm)
	}
	if allowed == 0 {
		t.Error("Expected at least the initial burst to be allowed")
	}
}
