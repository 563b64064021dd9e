package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tubegate/tubegate/pkg/models"
)

// brokenStore fails every operation, standing in for an unreachable
// database.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) GetKey(context.Context, string) (*models.APIKey, error) {
	return nil, errStoreDown
}
func (brokenStore) PutKey(context.Context, *models.APIKey) error    { return errStoreDown }
func (brokenStore) EnsureKey(context.Context, *models.APIKey) error { return errStoreDown }
func (brokenStore) DeleteKey(context.Context, string) (bool, error) {
	return false, errStoreDown
}
func (brokenStore) ListKeys(context.Context) ([]*models.APIKey, error) {
	return nil, errStoreDown
}
func (brokenStore) MarkExpired(context.Context, string) error { return errStoreDown }
func (brokenStore) ResetWindow(context.Context, string, time.Time) error {
	return errStoreDown
}
func (brokenStore) IncrementUsage(context.Context, string) error { return errStoreDown }

func TestFailoverServesSeedsThroughOutage(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	fallback := NewMemoryStore()
	store := NewFailoverStore(brokenStore{}, fallback, testLogger(t))

	// Seeding still lands in the fallback while the primary is down
	if err := SeedStore(ctx, store, []*models.APIKey{activeKey("seed", now)}); err != nil {
		t.Fatalf("SeedStore failed: %v", err)
	}

	record, err := store.GetKey(ctx, "seed")
	if err != nil {
		t.Fatalf("GetKey should degrade, not fail: %v", err)
	}
	if record == nil {
		t.Fatal("Expected seed key served from fallback")
	}

	// The full validation chain works against the fallback
	v := NewValidator(store, testLogger(t))
	v.now = fixedClock(now)

	validated, err := v.Validate(ctx, "seed")
	if err != nil {
		t.Fatalf("Validate through outage failed: %v", err)
	}
	if validated.DailyRequests != 1 {
		t.Errorf("Expected increment in fallback, got %d", validated.DailyRequests)
	}
}

func TestFailoverConsultsFallbackOnPrimaryMiss(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	primary := NewMemoryStore()
	fallback := NewMemoryStore()
	if err := fallback.PutKey(ctx, activeKey("only-in-fallback", now)); err != nil {
		t.Fatal(err)
	}

	store := NewFailoverStore(primary, fallback, testLogger(t))

	// A healthy primary miss still checks the fallback
	record, err := store.GetKey(ctx, "only-in-fallback")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if record == nil {
		t.Error("Expected fallback hit on primary miss")
	}

	// A true miss in both tiers reads as nil, nil
	record, err = store.GetKey(ctx, "nowhere")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if record != nil {
		t.Error("Expected miss when neither tier holds the key")
	}
}

func TestFailoverPrefersPrimaryHit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	primary := NewMemoryStore()
	fallback := NewMemoryStore()

	inPrimary := activeKey("shared", now)
	inPrimary.Name = "primary-copy"
	inFallback := activeKey("shared", now)
	inFallback.Name = "fallback-copy"

	if err := primary.PutKey(ctx, inPrimary); err != nil {
		t.Fatal(err)
	}
	if err := fallback.PutKey(ctx, inFallback); err != nil {
		t.Fatal(err)
	}

	store := NewFailoverStore(primary, fallback, testLogger(t))

	record, err := store.GetKey(ctx, "shared")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if record.Name != "primary-copy" {
		t.Errorf("Expected primary copy to win, got %s", record.Name)
	}
}

func TestFailoverListKeysThroughOutage(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	fallback := NewMemoryStore()
	if err := fallback.PutKey(ctx, activeKey("seed", now)); err != nil {
		t.Fatal(err)
	}

	store := NewFailoverStore(brokenStore{}, fallback, testLogger(t))

	keys, err := store.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys should degrade, not fail: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Expected fallback listing, got %d keys", len(keys))
	}
}

func TestFailoverDeleteReportsEitherTier(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	primary := NewMemoryStore()
	fallback := NewMemoryStore()
	if err := fallback.PutKey(ctx, activeKey("seed", now)); err != nil {
		t.Fatal(err)
	}

	store := NewFailoverStore(primary, fallback, testLogger(t))

	deleted, err := store.DeleteKey(ctx, "seed")
	if err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if !deleted {
		t.Error("Expected delete to report the fallback hit")
	}
}
