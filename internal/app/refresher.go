package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/logging"
	"github.com/five82/roster/internal/query"
)

const (
	defaultRefreshInterval = 30 * time.Second
	maxBackoff             = 5 * time.Minute
)

// PageSource is the part of users.Service the refresher drives.
type PageSource interface {
	Current(ctx context.Context) query.Result[api.UserPage]
}

// Refresher re-issues the on-screen page query at a fixed cadence, backing
// off while the API keeps failing.
type Refresher struct {
	source   PageSource
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	failures  int
	lastError error
	lastRun   time.Time
}

// NewRefresher builds a Refresher. A non-positive interval uses the default.
func NewRefresher(source PageSource, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{
		source:   source,
		interval: interval,
		log:      logging.OrNop(logger),
	}
}

// Start launches the refresh loop in a goroutine. It returns immediately.
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		r.Tick(ctx)
		timer.Reset(r.NextDelay())
	}
}

// Tick performs one refresh and records its outcome.
func (r *Refresher) Tick(ctx context.Context) {
	res := r.source.Current(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRun = time.Now()
	if res.Err != nil && ctx.Err() == nil {
		r.failures++
		r.lastError = res.Err
		r.log.Warn("background refresh failed",
			"key", res.Key.String(),
			"failures", r.failures,
			"error", res.Err)
		return
	}
	if r.failures > 0 {
		r.log.Info("background refresh recovered", "after_failures", r.failures)
	}
	r.failures = 0
	r.lastError = nil
}

// NextDelay returns how long the loop waits before the next tick.
func (r *Refresher) NextDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return calculateBackoff(r.failures, r.interval)
}

// ConsecutiveFailures reports how many ticks in a row have failed.
func (r *Refresher) ConsecutiveFailures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// LastError returns the error of the most recent failed tick, or nil once a
// tick succeeds.
func (r *Refresher) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return min(base, maxBackoff)
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
