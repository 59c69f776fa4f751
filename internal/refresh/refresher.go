package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Target is reloaded on every tick
type Target interface {
	Refresh(ctx context.Context) error
}

// Refresher periodically reloads the document set
type Refresher struct {
	target   Target
	interval time.Duration
}

// NewRefresher creates a new refresh worker. A non-positive interval
// disables it.
func NewRefresher(target Target, interval time.Duration) *Refresher {
	return &Refresher{
		target:   target,
		interval: interval,
	}
}

// Start begins the refresh worker in a goroutine
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		slog.Info("document refresh disabled")
		return
	}
	go r.run(ctx)
}

// run is the main loop for the refresh worker
func (r *Refresher) run(ctx context.Context) {
	slog.Info("refresh worker started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh worker stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh reloads once; failures keep the last known good documents
func (r *Refresher) refresh(ctx context.Context) {
	slog.Debug("running refresh cycle")

	start := time.Now()
	if err := r.target.Refresh(ctx); err != nil {
		slog.Warn("document refresh failed, keeping previous documents", "error", err)
		return
	}

	slog.Debug("documents refreshed", "duration_ms", time.Since(start).Milliseconds())
}
