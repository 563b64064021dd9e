package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tubegate/tubegate/internal/config"
	"github.com/tubegate/tubegate/pkg/models"
)

// Store is the persistence surface the validator and admin operations
// depend on. Get returns nil without error on a miss so callers can
// tell absence from storage failure.
type Store interface {
	GetKey(ctx context.Context, key string) (*models.APIKey, error)
	PutKey(ctx context.Context, key *models.APIKey) error
	EnsureKey(ctx context.Context, key *models.APIKey) error
	DeleteKey(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]*models.APIKey, error)
	MarkExpired(ctx context.Context, key string) error
	ResetWindow(ctx context.Context, key string, resetAt time.Time) error
	IncrementUsage(ctx context.Context, key string) error
}

// GenerateKey mints a new opaque API token
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NextMidnight returns the local-midnight boundary strictly after now
func NextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	for !midnight.After(now) {
		midnight = midnight.AddDate(0, 0, 1)
	}
	return midnight
}

// BootstrapKeys builds the seed records from configuration: one admin
// key, one standard key, and optionally a demo key. Keys left empty in
// config are skipped.
func BootstrapKeys(admin config.AdminConfig, quota config.QuotaConfig, now time.Time) []*models.APIKey {
	resetAt := NextMidnight(now)
	validUntil := now.AddDate(10, 0, 0)

	var seeds []*models.APIKey

	if admin.BootstrapAdminKey != "" {
		seeds = append(seeds, &models.APIKey{
			Key:        admin.BootstrapAdminKey,
			Name:       "bootstrap-admin",
			IsAdmin:    true,
			CreatedAt:  now,
			ValidUntil: validUntil,
			DailyLimit: quota.AdminDailyLimit,
			ResetAt:    resetAt,
			Status:     models.KeyStatusActive,
			CreatedBy:  "bootstrap",
		})
	}

	if admin.BootstrapStandardKey != "" {
		seeds = append(seeds, &models.APIKey{
			Key:        admin.BootstrapStandardKey,
			Name:       "bootstrap-standard",
			CreatedAt:  now,
			ValidUntil: validUntil,
			DailyLimit: quota.StandardDailyLimit,
			ResetAt:    resetAt,
			Status:     models.KeyStatusActive,
			CreatedBy:  "bootstrap",
		})
	}

	if admin.EnableDemoKey && admin.DemoKey != "" {
		seeds = append(seeds, &models.APIKey{
			Key:        admin.DemoKey,
			Name:       "demo",
			CreatedAt:  now,
			ValidUntil: validUntil,
			DailyLimit: quota.DemoDailyLimit,
			ResetAt:    resetAt,
			Status:     models.KeyStatusActive,
			CreatedBy:  "bootstrap",
		})
	}

	return seeds
}

// SeedStore writes the bootstrap keys into a store without touching
// rows that already exist
func SeedStore(ctx context.Context, store Store, seeds []*models.APIKey) error {
	for _, seed := range seeds {
		if err := store.EnsureKey(ctx, seed); err != nil {
			return fmt.Errorf("failed to seed key %s: %w", seed.Name, err)
		}
	}
	return nil
}
