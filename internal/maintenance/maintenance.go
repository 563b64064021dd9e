package maintenance

import (
	"context"
	"time"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
)

const (
	defaultInterval  = time.Hour
	defaultRetention = 30
	lockResource     = "maintenance_sweep"
	lockTTL          = 5 * time.Minute
)

// KeySweeper walks the key table, expiring and resetting keys
type KeySweeper interface {
	Sweep(ctx context.Context) (expired, reset int, err error)
}

// Repository is the slice of the database layer the sweeper needs
type Repository interface {
	DeleteUsageLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountKeysByStatus(ctx context.Context) (map[string]int, error)
}

// Locker serializes sweeps across replicas. Optional.
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// StalePruner drops durable file refs whose objects vanished. Optional.
type StalePruner interface {
	PruneStale(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance loop: key expiry and quota
// resets, usage log retention, and stale file ref pruning.
type Scheduler struct {
	sweeper   KeySweeper
	repo      Repository
	locker    Locker
	files     StalePruner
	interval  time.Duration
	retention time.Duration
	log       *logging.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a maintenance scheduler. locker and files may be
// nil when Redis or durable storage is not configured.
func NewScheduler(sweeper KeySweeper, repo Repository, locker Locker, files StalePruner, interval time.Duration, retentionDays int, log *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetention
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sweeper:   sweeper,
		repo:      repo,
		locker:    locker,
		files:     files,
		interval:  interval,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the maintenance loop
func (s *Scheduler) Start() {
	go s.loop()
	s.log.Infof("Maintenance scheduler started (interval: %s)", s.interval)
}

// Stop stops the maintenance loop
func (s *Scheduler) Stop() {
	s.cancel()
	s.log.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one maintenance round, skipping it when another replica
// holds the sweep lock.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, lockTTL)
	defer cancel()

	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, lockResource, lockTTL)
		if err != nil {
			s.log.ErrorWithErr("Failed to acquire maintenance lock", err)
			return
		}
		if !acquired {
			s.log.Debug("Maintenance lock held elsewhere, skipping round")
			return
		}
		defer func() {
			if err := s.locker.ReleaseLock(ctx, lockResource); err != nil {
				s.log.ErrorWithErr("Failed to release maintenance lock", err)
			}
		}()
	}

	if _, _, err := s.RunSweep(ctx); err != nil {
		s.log.ErrorWithErr("Key sweep failed", err)
	}

	if _, _, err := s.RunCleanup(ctx); err != nil {
		s.log.ErrorWithErr("Cleanup failed", err)
	}
}

// RunSweep expires overdue keys, resets elapsed quota windows, and
// refreshes the key status gauge. The admin maintenance endpoint calls
// this directly.
func (s *Scheduler) RunSweep(ctx context.Context) (expired, reset int, err error) {
	expired, reset, err = s.sweeper.Sweep(ctx)
	if err != nil {
		metrics.RecordError("maintenance", "sweep")
		return 0, 0, err
	}

	if expired > 0 || reset > 0 {
		s.log.Infof("Key sweep finished (expired: %d, reset: %d)", expired, reset)
	}

	counts, err := s.repo.CountKeysByStatus(ctx)
	if err != nil {
		metrics.RecordError("maintenance", "key_counts")
		s.log.ErrorWithErr("Failed to refresh key counts", err)
	} else {
		metrics.SetKeyCounts(counts)
	}

	return expired, reset, nil
}

// RunCleanup drops usage logs past retention and prunes durable refs
// whose objects are gone. The admin cleanup endpoint calls this
// directly.
func (s *Scheduler) RunCleanup(ctx context.Context) (logsDeleted int64, refsPruned int, err error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	logsDeleted, err = s.repo.DeleteUsageLogsBefore(ctx, cutoff)
	if err != nil {
		metrics.RecordError("maintenance", "log_retention")
		return 0, 0, err
	}
	if logsDeleted > 0 {
		s.log.Infof("Dropped %d usage logs older than %s", logsDeleted, cutoff.Format(time.RFC3339))
	}

	if s.files != nil {
		refsPruned, err = s.files.PruneStale(ctx)
		if err != nil {
			metrics.RecordError("maintenance", "stale_refs")
			return logsDeleted, 0, err
		}
		if refsPruned > 0 {
			s.log.Infof("Pruned %d stale file refs", refsPruned)
		}
	}

	return logsDeleted, refsPruned, nil
}
