package respcache

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultJanitorSchedule runs cleanup every five minutes.
const DefaultJanitorSchedule = "@every 5m"

// Janitor drives Cache.Cleanup on a cron schedule. The cache itself has
// no timers; reclaiming memory proactively instead of waiting for lazy
// expiry is a host-level choice, which is why the janitor lives outside
// the cache.
type Janitor struct {
	cache    *Cache
	schedule string
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewJanitor creates a janitor for cache. An empty schedule takes
// DefaultJanitorSchedule; the schedule is validated at construction.
func NewJanitor(cache *Cache, schedule string, logger zerolog.Logger) (*Janitor, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	return &Janitor{
		cache:    cache,
		schedule: schedule,
		logger:   logger.With().Str("component", "respcache-janitor").Logger(),
	}, nil
}

// Start begins periodic cleanup. Starting a running janitor is an error.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor is already running")
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.sweep); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	j.cron.Start()
	j.running = true

	j.logger.Info().Str("schedule", j.schedule).Msg("Cache janitor started")
	return nil
}

// Stop halts periodic cleanup and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor is not running")
	}
	c := j.cron
	j.running = false
	j.mu.Unlock()

	<-c.Stop().Done()

	j.logger.Info().Msg("Cache janitor stopped")
	return nil
}

// IsRunning reports whether the janitor is active.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// CleanupNow runs a sweep immediately, outside the schedule.
func (j *Janitor) CleanupNow() int {
	return j.cache.Cleanup()
}

func (j *Janitor) sweep() {
	removed := j.cache.Cleanup()
	if removed > 0 {
		j.logger.Debug().Int("removed", removed).Msg("Scheduled cleanup removed expired entries")
	}
}
