package auth

import (
	"context"
	"time"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/pkg/models"
)

// FailoverStore wraps a durable primary store with an in-memory
// fallback. A primary failure degrades to the fallback instead of
// failing the request, which keeps the bootstrap keys serviceable
// through a database outage. Reads also consult the fallback on a
// primary miss, so keys minted during an outage keep working.
type FailoverStore struct {
	primary  Store
	fallback Store
	log      *logging.Logger
}

// NewFailoverStore creates a failover store
func NewFailoverStore(primary, fallback Store, log *logging.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (s *FailoverStore) degraded(op string, err error) {
	metrics.RecordKeyStoreFallback(op)
	s.log.WithError(err).WithField("operation", op).Warn("Key store degraded, using fallback")
}

func (s *FailoverStore) GetKey(ctx context.Context, key string) (*models.APIKey, error) {
	record, err := s.primary.GetKey(ctx, key)
	if err != nil {
		s.degraded("get", err)
		return s.fallback.GetKey(ctx, key)
	}
	if record == nil {
		return s.fallback.GetKey(ctx, key)
	}
	return record, nil
}

func (s *FailoverStore) PutKey(ctx context.Context, key *models.APIKey) error {
	if err := s.primary.PutKey(ctx, key); err != nil {
		s.degraded("put", err)
		return s.fallback.PutKey(ctx, key)
	}
	return nil
}

// EnsureKey seeds both tiers so the fallback can serve the bootstrap
// keys on its own
func (s *FailoverStore) EnsureKey(ctx context.Context, key *models.APIKey) error {
	if err := s.primary.EnsureKey(ctx, key); err != nil {
		s.degraded("ensure", err)
	}
	return s.fallback.EnsureKey(ctx, key)
}

func (s *FailoverStore) DeleteKey(ctx context.Context, key string) (bool, error) {
	deleted, err := s.primary.DeleteKey(ctx, key)
	if err != nil {
		s.degraded("delete", err)
		deleted = false
	}

	fallbackDeleted, _ := s.fallback.DeleteKey(ctx, key)
	return deleted || fallbackDeleted, nil
}

func (s *FailoverStore) ListKeys(ctx context.Context) ([]*models.APIKey, error) {
	keys, err := s.primary.ListKeys(ctx)
	if err != nil {
		s.degraded("list", err)
		return s.fallback.ListKeys(ctx)
	}
	return keys, nil
}

func (s *FailoverStore) MarkExpired(ctx context.Context, key string) error {
	if err := s.primary.MarkExpired(ctx, key); err != nil {
		s.degraded("mark_expired", err)
	}
	// No-op when the fallback does not hold the key
	return s.fallback.MarkExpired(ctx, key)
}

func (s *FailoverStore) ResetWindow(ctx context.Context, key string, resetAt time.Time) error {
	if err := s.primary.ResetWindow(ctx, key, resetAt); err != nil {
		s.degraded("reset_window", err)
	}
	return s.fallback.ResetWindow(ctx, key, resetAt)
}

func (s *FailoverStore) IncrementUsage(ctx context.Context, key string) error {
	if err := s.primary.IncrementUsage(ctx, key); err != nil {
		s.degraded("increment", err)
	}
	return s.fallback.IncrementUsage(ctx, key)
}
