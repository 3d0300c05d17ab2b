package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nestquant/nestquant/pkg/dispatch"
	"github.com/nestquant/nestquant/pkg/respcache"
	"github.com/nestquant/nestquant/pkg/taskqueue"
	"github.com/nestquant/nestquant/pkg/toolreg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	taskID string
	output string
	err    error
}

type resultRecorder struct {
	mu      sync.Mutex
	results []result
}

func (r *resultRecorder) record(taskID, output string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result{taskID: taskID, output: output, err: err})
}

func (r *resultRecorder) all() []result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]result(nil), r.results...)
}

type fixture struct {
	agent    *Agent
	queue    *taskqueue.Queue
	cache    *respcache.Cache
	recorder *resultRecorder
	calls    *int
}

func newFixture(t *testing.T, extra ...toolreg.Definition) *fixture {
	t.Helper()

	calls := 0
	defs := append([]toolreg.Definition{
		{
			Name:        "comps",
			Description: "comparable sales lookup",
			Handler: func(ctx context.Context, input string) (string, error) {
				calls++
				return "comps for " + input, nil
			},
		},
		{
			Name: "faulty",
			Handler: func(ctx context.Context, input string) (string, error) {
				return "", errors.New("upstream unavailable")
			},
		},
	}, extra...)

	tools, err := toolreg.New(defs, zerolog.Nop())
	require.NoError(t, err)

	queue := taskqueue.New()
	cache := respcache.New(respcache.Config{})
	recorder := &resultRecorder{}

	a, err := New(Config{
		Queue:      queue,
		Dispatcher: dispatch.New(zerolog.Nop()),
		Tools:      tools,
		Cache:      cache,
		Logger:     zerolog.Nop(),
		OnResult:   recorder.record,
	})
	require.NoError(t, err)

	return &fixture{agent: a, queue: queue, cache: cache, recorder: recorder, calls: &calls}
}

func TestAgent_New_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestAgent_SubmitDrainsAndReports(t *testing.T) {
	f := newFixture(t)

	taskID, err := f.agent.Submit("comps", "78701")
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	results := f.recorder.all()
	require.Len(t, results, 1)
	assert.Equal(t, taskID, results[0].taskID)
	assert.Equal(t, "comps for 78701", results[0].output)
	assert.NoError(t, results[0].err)

	assert.Empty(t, f.queue.PendingIDs(), "Queue should drain synchronously")
	assert.Empty(t, f.queue.RunningIDs())
	assert.Equal(t, 0, f.agent.Pending())
}

func TestAgent_RepeatRequestServedFromCache(t *testing.T) {
	f := newFixture(t)

	_, err := f.agent.Submit("comps", "78701")
	require.NoError(t, err)
	_, err = f.agent.Submit("comps", "78701")
	require.NoError(t, err)

	assert.Equal(t, 1, *f.calls, "Second identical request should hit the cache")

	results := f.recorder.all()
	require.Len(t, results, 2)
	assert.Equal(t, results[0].output, results[1].output)
}

func TestAgent_ToolErrorReported(t *testing.T) {
	f := newFixture(t)

	taskID, err := f.agent.Submit("faulty", "anything")
	require.NoError(t, err, "Handler errors surface via OnResult, not Submit")

	results := f.recorder.all()
	require.Len(t, results, 1)
	assert.Equal(t, taskID, results[0].taskID)
	assert.Error(t, results[0].err)
	assert.Equal(t, 0, f.cache.Size(), "Failed invocations are not memoized")
}

func TestAgent_UnknownToolReported(t *testing.T) {
	f := newFixture(t)

	_, err := f.agent.Submit("no-such-tool", "")
	require.NoError(t, err)

	results := f.recorder.all()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].err, toolreg.ErrToolNotFound)
}

func TestAgent_CancelBeforeDrainSkipsTask(t *testing.T) {
	f := newFixture(t)

	// Hold the drain loop so the submission stays pending.
	f.queue.SetProcessing(true)

	taskID, err := f.agent.Submit("comps", "78701")
	require.NoError(t, err)
	assert.Equal(t, []string{taskID}, f.queue.PendingIDs())

	require.NoError(t, f.agent.Cancel(taskID))
	assert.Equal(t, 0, f.agent.Pending())

	// Release and drain: the canceled task dequeues but never executes.
	f.queue.SetProcessing(false)
	require.NoError(t, f.agent.HandleTaskAdded(taskID))

	assert.Empty(t, f.recorder.all(), "Canceled task should produce no result")
	assert.Equal(t, 0, *f.calls)
	assert.Empty(t, f.queue.PendingIDs())
}

func TestAgent_SubmitWhileDrainingDoesNotNest(t *testing.T) {
	f := newFixture(t)

	f.queue.SetProcessing(true)

	id1, err := f.agent.Submit("comps", "first")
	require.NoError(t, err)
	id2, err := f.agent.Submit("comps", "second")
	require.NoError(t, err)

	assert.Empty(t, f.recorder.all(), "Nothing runs while a drain is in progress")
	assert.Equal(t, []string{id1, id2}, f.queue.PendingIDs())

	f.queue.SetProcessing(false)
	require.NoError(t, f.agent.HandleTaskAdded(id2))

	results := f.recorder.all()
	require.Len(t, results, 2)
	assert.Equal(t, id1, results[0].taskID, "Drain preserves submission order")
	assert.Equal(t, id2, results[1].taskID)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "comps:78701", Fingerprint("comps", "78701"))
	assert.NotEqual(t, Fingerprint("a", "bc"), Fingerprint("ab", "c"),
		"Separator keeps tool and input segments distinct")
}
