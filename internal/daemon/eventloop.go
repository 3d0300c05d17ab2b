package daemon

import (
	"context"
	"time"
)

// EventLoop handles periodic maintenance for the daemon
type EventLoop struct {
	daemon *Daemon
}

// NewEventLoop creates a new event loop
func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{
		daemon: d,
	}
}

// Run runs the event loop with periodic maintenance tasks
func (e *EventLoop) Run(ctx context.Context) {
	e.daemon.logger.Info().Msg("Event loop started")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.daemon.logger.Info().Msg("Event loop stopping")
			return

		case <-ticker.C:
			e.processMaintenance()
		}
	}
}

// processMaintenance logs queue and cache stats for monitoring and
// falls back to lazy-only expiry when the janitor is disabled.
func (e *EventLoop) processMaintenance() {
	stats := e.daemon.queue.Stats()
	if stats["pending"] > 0 || stats["running"] > 0 {
		e.daemon.logger.Debug().
			Int("pending", stats["pending"]).
			Int("running", stats["running"]).
			Msg("Queue stats")
	}

	e.daemon.logger.Debug().
		Int("entries", e.daemon.cache.Size()).
		Msg("Cache stats")

	// NOTE: when the janitor is enabled, scheduled cleanup runs on its
	// own cron goroutine started during daemon initialization.
}
