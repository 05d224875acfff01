package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
)

// runTimeout bounds a single refresh run.
const runTimeout = 2 * time.Minute

// Refresher recomputes converted prices and reports how many screenings changed.
type Refresher interface {
	RefreshPrices(ctx context.Context) (int, error)
}

// PriceRefreshJob runs the refresher once a day at a fixed UTC wall-clock time.
type PriceRefreshJob struct {
	refresher Refresher
	metrics   *metrics.Metrics
	hour, min int
	now       func() time.Time

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewPriceRefreshJob creates a job firing every day at at, formatted HH:MM.
func NewPriceRefreshJob(r Refresher, m *metrics.Metrics, at string) (*PriceRefreshJob, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("price refresh time %q: %w", at, err)
	}
	return &PriceRefreshJob{
		refresher: r,
		metrics:   m,
		hour:      t.Hour(),
		min:       t.Minute(),
		now:       time.Now,
	}, nil
}

// NextRun returns the first firing time strictly after now.
func (j *PriceRefreshJob) NextRun(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), j.hour, j.min, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start schedules the job until ctx is done or Stop is called.
func (j *PriceRefreshJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done != nil {
		return
	}
	j.done = make(chan struct{})
	done := j.done

	logger.Get().Info("starting price refresh job", "at", fmt.Sprintf("%02d:%02d UTC", j.hour, j.min))
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for {
			wait := j.NextRun(j.now()).Sub(j.now())
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
				j.RunOnce(ctx)
			case <-done:
				timer.Stop()
				logger.Get().Info("price refresh job stopped")
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (j *PriceRefreshJob) Stop() {
	j.mu.Lock()
	if j.done != nil {
		close(j.done)
		j.done = nil
	}
	j.mu.Unlock()
	j.wg.Wait()
}

// RunOnce performs one refresh. Failures are logged and counted; the next
// run happens at the next scheduled time.
func (j *PriceRefreshJob) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.refresher.RefreshPrices(ctx)
	if err != nil {
		j.metrics.PriceRefresh("error", n)
		logger.Get().Error("price refresh failed", "updated", n, "error", err)
		return n, err
	}
	j.metrics.PriceRefresh("ok", n)
	logger.Get().Info("price refresh finished", "updated", n, "took", time.Since(start).String())
	return n, nil
}
