package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/pkg/models"
)

// Validator applies the key lifecycle state machine: expiry, quota
// rollover, quota enforcement, and usage counting. The check order is
// fixed: persisted status first, then wall-clock expiry, then window
// rollover, then quota, then increment.
type Validator struct {
	store Store
	log   *logging.Logger
	now   func() time.Time
}

// NewValidator creates a validator over the given store
func NewValidator(store Store, log *logging.Logger) *Validator {
	return &Validator{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Validate authorizes a candidate key and consumes one request from
// its quota. Quota is consumed on successful authorization regardless
// of what the downstream handler then does.
func (v *Validator) Validate(ctx context.Context, candidate string) (*models.APIKey, error) {
	if candidate == "" {
		return nil, ErrMissingKey
	}

	key, err := v.store.GetKey(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("key lookup failed: %w", err)
	}
	if key == nil {
		metrics.RecordKeyValidation("unknown")
		return nil, ErrInvalidKey
	}

	// A persisted expired status short-circuits without recomputing
	// from time, so expiry survives clock rollback.
	if key.Status == models.KeyStatusExpired || key.Status == models.KeyStatusSuspended {
		metrics.RecordKeyValidation("inactive")
		return nil, ErrInvalidKey
	}

	now := v.now()

	if key.Expired(now) {
		if err := v.store.MarkExpired(ctx, key.Key); err != nil {
			v.log.WithError(err).WithAPIKey(key.Key).Error("Failed to persist key expiry")
		}
		v.log.LogKeyEvent(key.Key, "expired", map[string]interface{}{
			"valid_until": key.ValidUntil,
		})
		metrics.RecordKeyValidation("expired")
		return nil, ErrInvalidKey
	}

	if key.WindowElapsed(now) {
		resetAt := NextMidnight(now)
		if err := v.store.ResetWindow(ctx, key.Key, resetAt); err != nil {
			v.log.WithError(err).WithAPIKey(key.Key).Error("Failed to roll quota window")
		}
		key.DailyRequests = 0
		key.ResetAt = resetAt
	}

	// Quota check precedes increment
	if key.DailyRequests >= key.DailyLimit {
		metrics.RecordKeyValidation("quota_exceeded")
		return nil, ErrQuotaExceeded
	}

	if err := v.store.IncrementUsage(ctx, key.Key); err != nil {
		v.log.WithError(err).WithAPIKey(key.Key).Error("Failed to increment usage counters")
	}
	key.DailyRequests++
	key.TotalRequests++

	metrics.RecordKeyValidation("ok")
	return key, nil
}

// ValidateAdmin authorizes an administrative key. Admin calls are not
// metered: no counter increment and no quota check, matching the
// request-path behavior admins rely on for recovery when a key pool is
// exhausted.
func (v *Validator) ValidateAdmin(ctx context.Context, candidate string) (*models.APIKey, error) {
	if candidate == "" {
		return nil, ErrMissingKey
	}

	key, err := v.store.GetKey(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("key lookup failed: %w", err)
	}
	if key == nil {
		metrics.RecordKeyValidation("admin_unknown")
		return nil, ErrInvalidKey
	}

	if key.Status == models.KeyStatusExpired || key.Status == models.KeyStatusSuspended {
		metrics.RecordKeyValidation("admin_inactive")
		return nil, ErrInvalidKey
	}

	if key.Expired(v.now()) {
		if err := v.store.MarkExpired(ctx, key.Key); err != nil {
			v.log.WithError(err).WithAPIKey(key.Key).Error("Failed to persist key expiry")
		}
		metrics.RecordKeyValidation("admin_expired")
		return nil, ErrInvalidKey
	}

	if !key.IsAdmin {
		metrics.RecordKeyValidation("not_admin")
		return nil, ErrInsufficientPrivilege
	}

	metrics.RecordKeyValidation("admin_ok")
	return key, nil
}

// Sweep applies the expiry and rollover transitions to every key
// outside the request path. Returns how many keys were newly expired
// and how many had their window reset.
func (v *Validator) Sweep(ctx context.Context) (expired, reset int, err error) {
	keys, err := v.store.ListKeys(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list keys for sweep: %w", err)
	}

	now := v.now()
	for _, key := range keys {
		if key.Status != models.KeyStatusActive {
			continue
		}

		if key.Expired(now) {
			if err := v.store.MarkExpired(ctx, key.Key); err != nil {
				v.log.WithError(err).WithAPIKey(key.Key).Error("Sweep failed to expire key")
				continue
			}
			v.log.LogKeyEvent(key.Key, "expired", map[string]interface{}{
				"valid_until": key.ValidUntil,
				"swept":       true,
			})
			expired++
			continue
		}

		if key.WindowElapsed(now) {
			if err := v.store.ResetWindow(ctx, key.Key, NextMidnight(now)); err != nil {
				v.log.WithError(err).WithAPIKey(key.Key).Error("Sweep failed to roll quota window")
				continue
			}
			reset++
		}
	}

	return expired, reset, nil
}
