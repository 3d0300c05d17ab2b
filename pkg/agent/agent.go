package agent

import (
	"context"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nestquant/nestquant/internal/tracing"
	"github.com/nestquant/nestquant/pkg/dispatch"
	"github.com/nestquant/nestquant/pkg/respcache"
	"github.com/nestquant/nestquant/pkg/taskqueue"
	"github.com/nestquant/nestquant/pkg/toolreg"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// request is the payload behind a queued task identifier. The queue
// itself carries identifiers only.
type request struct {
	tool  string
	input string
}

// ResultFunc receives the outcome of a drained task. Cache hits and tool
// executions both report through it.
type ResultFunc func(taskID, output string, err error)

// Config holds agent wiring. Queue, Dispatcher, Tools and Cache are
// injected by the host; the agent owns none of their lifecycles.
type Config struct {
	Queue      *taskqueue.Queue
	Dispatcher *dispatch.Dispatcher
	Tools      *toolreg.Registry
	Cache      *respcache.Cache
	Logger     zerolog.Logger
	OnResult   ResultFunc
}

// Agent is the controlling object the dispatcher invokes. It admits
// tasks, drains the queue serially and memoizes tool responses.
type Agent struct {
	queue      *taskqueue.Queue
	dispatcher *dispatch.Dispatcher
	tools      *toolreg.Registry
	cache      *respcache.Cache
	logger     zerolog.Logger
	onResult   ResultFunc

	mu       sync.Mutex
	requests map[string]request
}

// New creates an agent and binds its handlers to the dispatcher's
// canonical event kinds.
func New(cfg Config) (*Agent, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("task queue is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("response cache is required")
	}

	a := &Agent{
		queue:      cfg.Queue,
		dispatcher: cfg.Dispatcher,
		tools:      cfg.Tools,
		cache:      cfg.Cache,
		logger:     cfg.Logger.With().Str("component", "agent").Logger(),
		onResult:   cfg.OnResult,
		requests:   make(map[string]request),
	}

	cfg.Dispatcher.RegisterAgentHandlers(a)

	return a, nil
}

// Submit admits a tool request: it records the payload, enqueues a fresh
// task identifier and emits taskAdded. The returned error is whatever
// the taskAdded handlers surfaced; the task itself is already enqueued.
func (a *Agent) Submit(toolName, input string) (string, error) {
	taskID, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate task id: %w", err)
	}

	a.mu.Lock()
	a.requests[taskID] = request{tool: toolName, input: input}
	a.mu.Unlock()

	a.queue.Enqueue(taskID)

	a.logger.Debug().
		Str("taskId", taskID).
		Str("tool", toolName).
		Msg("Task submitted")

	return taskID, a.dispatcher.Emit(dispatch.NewEvent(dispatch.KindTaskAdded, taskID))
}

// Cancel emits taskCanceled for id. In-flight tool executions are not
// aborted; cancellation only drops tasks still pending.
func (a *Agent) Cancel(taskID string) error {
	return a.dispatcher.Emit(dispatch.NewEvent(dispatch.KindTaskCanceled, taskID))
}

// HandleTaskAdded drains the queue unless a drain loop is already in
// progress. The processing flag serializes drains; dispatch is
// synchronous, so a Submit from inside a handler lands on this loop
// rather than starting a second one.
func (a *Agent) HandleTaskAdded(taskID string) error {
	if a.queue.Processing() {
		a.logger.Debug().Str("taskId", taskID).Msg("Drain already in progress")
		return nil
	}

	a.queue.SetProcessing(true)
	defer a.queue.SetProcessing(false)

	for {
		id, ok := a.queue.Dequeue()
		if !ok {
			return nil
		}
		a.processTask(id)
	}
}

// HandleTaskCanceled drops the stored request so a later dequeue skips
// the task, and clears any running-set bookkeeping for it.
func (a *Agent) HandleTaskCanceled(taskID string) error {
	a.mu.Lock()
	_, known := a.requests[taskID]
	delete(a.requests, taskID)
	a.mu.Unlock()

	a.queue.MarkComplete(taskID)

	a.logger.Debug().
		Str("taskId", taskID).
		Bool("known", known).
		Msg("Task canceled")

	return nil
}

// processTask executes one dequeued task: cache lookup by fingerprint,
// tool invocation on miss, memoization of the response.
func (a *Agent) processTask(taskID string) {
	a.mu.Lock()
	req, ok := a.requests[taskID]
	delete(a.requests, taskID)
	a.mu.Unlock()

	if !ok {
		// Canceled before it was dequeued.
		a.logger.Debug().Str("taskId", taskID).Msg("Skipping task without request payload")
		return
	}

	a.queue.MarkRunning(taskID)
	defer a.queue.MarkComplete(taskID)

	ctx := tracing.WithTaskID(tracing.NewRequestContext(context.Background()), taskID)
	ctx, span := tracing.StartSpan(
		ctx,
		"nestquant.agent",
		"agent.process_task",
		attribute.String("task_id", taskID),
		attribute.String("tool", req.tool),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, a.logger)

	key := Fingerprint(req.tool, req.input)

	if value, hit := a.cache.Get(key); hit {
		logger.Debug().Str("fingerprint", key).Msg("Serving response from cache")
		a.report(taskID, value, nil)
		return
	}

	output, err := a.tools.UseTool(ctx, req.tool, req.input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("Task failed")
		a.report(taskID, "", err)
		return
	}

	if evictedKey, evicted := a.cache.Set(key, output); evicted {
		logger.Debug().Str("evicted", evictedKey).Msg("Cached response displaced older entry")
	}

	logger.Debug().Str("fingerprint", key).Msg("Task completed")
	a.report(taskID, output, nil)
}

func (a *Agent) report(taskID, output string, err error) {
	if a.onResult != nil {
		a.onResult(taskID, output, err)
	}
}

// Fingerprint derives the cache key for a tool request. The cache's own
// key bound truncates long fingerprints, so distinct requests sharing a
// long common prefix can collide; callers needing stronger separation
// should hash their inputs into the fingerprint.
func Fingerprint(toolName, input string) string {
	return toolName + ":" + input
}

// Pending returns the number of submitted requests not yet processed or
// canceled.
func (a *Agent) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}
