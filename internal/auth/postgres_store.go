package auth

import (
	"context"
	"time"

	"github.com/tubegate/tubegate/internal/database"
	"github.com/tubegate/tubegate/pkg/models"
)

// PostgresStore backs the key store with the database repository
type PostgresStore struct {
	repo *database.Repository
}

// NewPostgresStore creates a durable key store
func NewPostgresStore(repo *database.Repository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

func (s *PostgresStore) GetKey(ctx context.Context, key string) (*models.APIKey, error) {
	return s.repo.GetKey(ctx, key)
}

func (s *PostgresStore) PutKey(ctx context.Context, key *models.APIKey) error {
	return s.repo.InsertKey(ctx, key)
}

func (s *PostgresStore) EnsureKey(ctx context.Context, key *models.APIKey) error {
	return s.repo.UpsertKey(ctx, key)
}

func (s *PostgresStore) DeleteKey(ctx context.Context, key string) (bool, error) {
	return s.repo.DeleteKey(ctx, key)
}

func (s *PostgresStore) ListKeys(ctx context.Context) ([]*models.APIKey, error) {
	return s.repo.ListKeys(ctx)
}

func (s *PostgresStore) MarkExpired(ctx context.Context, key string) error {
	return s.repo.MarkExpired(ctx, key)
}

func (s *PostgresStore) ResetWindow(ctx context.Context, key string, resetAt time.Time) error {
	return s.repo.ResetWindow(ctx, key, resetAt)
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, key string) error {
	return s.repo.IncrementUsage(ctx, key)
}
