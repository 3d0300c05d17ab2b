package daemon

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nestquant/nestquant/internal/config"
	"github.com/nestquant/nestquant/internal/logger"
	"github.com/nestquant/nestquant/internal/observability"
	"github.com/nestquant/nestquant/internal/tracing"
	"github.com/nestquant/nestquant/pkg/agent"
	"github.com/nestquant/nestquant/pkg/dispatch"
	"github.com/nestquant/nestquant/pkg/respcache"
	"github.com/nestquant/nestquant/pkg/taskqueue"
	"github.com/nestquant/nestquant/pkg/toolreg"
)

// Daemon owns the orchestration core instances and their lifecycles.
// Components are constructed explicitly and threaded by reference; there
// are no hidden singletons.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue      *taskqueue.Queue
	dispatcher *dispatch.Dispatcher
	tools      *toolreg.Registry
	cache      *respcache.Cache
	agent      *agent.Agent
	janitor    *respcache.Janitor

	// Services
	metricsServer *http.Server

	// Internal
	eventLoop *EventLoop

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Options carries host-supplied collaborators.
type Options struct {
	// Tools is the fixed tool collection for the registry.
	Tools []toolreg.Definition
	// OnResult receives drained task outcomes. Optional.
	OnResult agent.ResultFunc
}

// New creates a daemon instance with all core modules wired in
// dependency order.
func New(cfg *config.Config, log *logger.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	if err := tracing.InitOpenTelemetry("nestquant-daemon"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	}

	d := &Daemon{
		config:         cfg,
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
		tracingEnabled: true,
	}

	if err := d.initializeCoreModules(opts); err != nil {
		cancel()
		_ = tracing.ShutdownOpenTelemetry(context.Background())
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	d.eventLoop = NewEventLoop(d)

	return d, nil
}

// initializeCoreModules initializes all core modules in dependency order
func (d *Daemon) initializeCoreModules(opts Options) error {
	d.cache = respcache.New(respcache.Config{
		MaxEntries:  d.config.Cache.MaxEntries,
		MaxValueLen: d.config.Cache.MaxValueLen,
		TTL:         d.config.Cache.TTL,
	})
	d.logger.Info().
		Int("maxEntries", d.config.Cache.MaxEntries).
		Dur("ttl", d.config.Cache.TTL).
		Msg("Response cache initialized")

	tools, err := toolreg.New(opts.Tools, d.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create tool registry: %w", err)
	}
	d.tools = tools

	d.queue = taskqueue.New()
	d.logger.Info().Msg("Task queue initialized")

	d.dispatcher = dispatch.New(d.logger.GetZerolog())

	a, err := agent.New(agent.Config{
		Queue:      d.queue,
		Dispatcher: d.dispatcher,
		Tools:      d.tools,
		Cache:      d.cache,
		Logger:     d.logger.GetZerolog(),
		OnResult:   opts.OnResult,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	d.agent = a
	d.logger.Info().Msg("Agent initialized")

	if d.config.Janitor.Enabled {
		janitor, err := respcache.NewJanitor(d.cache, d.config.Janitor.Schedule, d.logger.GetZerolog())
		if err != nil {
			return fmt.Errorf("failed to create cache janitor: %w", err)
		}
		d.janitor = janitor
	}

	return nil
}

// Start starts the daemon services and background loops.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	if d.janitor != nil {
		if err := d.janitor.Start(); err != nil {
			return fmt.Errorf("failed to start cache janitor: %w", err)
		}
	}

	if d.config.Metrics.Enabled {
		d.startMetricsServer()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.eventLoop.Run(d.ctx)
	}()

	d.logger.Info().Msg("Daemon started")
	return nil
}

// Stop shuts the daemon down gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.cancel()

	if d.janitor != nil && d.janitor.IsRunning() {
		_ = d.janitor.Stop()
	}

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	d.wg.Wait()

	if d.tracingEnabled {
		_ = tracing.ShutdownOpenTelemetry(context.Background())
		d.tracingEnabled = false
	}

	d.logger.Info().Dur("uptime", time.Since(d.startTime)).Msg("Daemon stopped")
	return nil
}

// IsRunning reports whether the daemon has been started and not stopped.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Agent returns the host agent for task submission.
func (d *Daemon) Agent() *agent.Agent {
	return d.agent
}

// Queue returns the task queue for monitoring.
func (d *Daemon) Queue() *taskqueue.Queue {
	return d.queue
}

// Cache returns the response cache for monitoring.
func (d *Daemon) Cache() *respcache.Cache {
	return d.cache
}

func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())

	d.metricsServer = &http.Server{
		Addr:    d.config.Metrics.Addr,
		Handler: mux,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.logger.Info().Str("addr", d.config.Metrics.Addr).Msg("Metrics server listening")
		if err := d.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}
