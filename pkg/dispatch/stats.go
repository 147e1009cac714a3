package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// DefaultStatsTimeout bounds a single match-stats update.
const DefaultStatsTimeout = 5 * time.Second

// StatsStore persists per-alert match statistics.
type StatsStore interface {
	IncrementMatchStats(ctx context.Context, id string, at time.Time) error
}

// StatsUpdater records matches in the background. Failures are logged and dropped.
type StatsUpdater struct {
	store   StatsStore
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewStatsUpdater creates a stats updater. timeout <= 0 selects DefaultStatsTimeout.
func NewStatsUpdater(store StatsStore, timeout time.Duration, logger *slog.Logger) *StatsUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultStatsTimeout
	}
	return &StatsUpdater{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Track starts one update per alert and returns immediately.
func (u *StatsUpdater) Track(alerts []model.Alert, at time.Time) {
	for _, a := range alerts {
		u.wg.Add(1)
		go func(id string) {
			defer u.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
			defer cancel()
			if err := u.store.IncrementMatchStats(ctx, id, at); err != nil {
				u.logger.Warn("update match stats", "alert_id", id, "error", err)
			}
		}(a.ID)
	}
}

// Wait blocks until all tracked updates have finished.
func (u *StatsUpdater) Wait() {
	u.wg.Wait()
}
