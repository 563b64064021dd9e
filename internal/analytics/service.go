package analytics

import (
	"context"
	"time"

	"github.com/tubegate/tubegate/pkg/models"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
	topKeyLimit     = 5
)

// UsageRepository is the slice of the database layer the stats service reads
type UsageRepository interface {
	CountKeysByStatus(ctx context.Context) (map[string]int, error)
	CountUsageSince(ctx context.Context, since time.Time) (int64, error)
	UsageByEndpointSince(ctx context.Context, since time.Time) ([]models.EndpointCount, error)
	TopKeysSince(ctx context.Context, since time.Time, limit int) ([]models.KeyCount, error)
	RecentUsageLogs(ctx context.Context, limit int) ([]*models.UsageLogEntry, error)
}

// Service aggregates key and traffic figures for the admin surface
type Service struct {
	repo UsageRepository
	now  func() time.Time
}

// NewService creates a new analytics service
func NewService(repo UsageRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Stats assembles the admin stats snapshot. Traffic figures cover the
// current UTC day, matching the quota reset window.
func (s *Service) Stats(ctx context.Context) (*models.UsageStats, error) {
	counts, err := s.repo.CountKeysByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.UsageStats{
		ActiveKeys:  counts[models.KeyStatusActive],
		ExpiredKeys: counts[models.KeyStatusExpired],
	}
	for _, n := range counts {
		stats.TotalKeys += n
	}

	startOfDay := s.now().UTC().Truncate(24 * time.Hour)

	stats.RequestsToday, err = s.repo.CountUsageSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	stats.ByEndpoint, err = s.repo.UsageByEndpointSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	stats.TopKeys, err = s.repo.TopKeysSince(ctx, startOfDay, topKeyLimit)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// RecentLogs returns the newest usage entries, clamping the requested
// limit to a sane range.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]*models.UsageLogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	return s.repo.RecentUsageLogs(ctx, limit)
}
