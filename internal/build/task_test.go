package build

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landingkit/lander/internal/logging"
)

func recordTask(mu *sync.Mutex, order *[]string, name string, err error) TaskFunc {
	return func(ctx context.Context) error {
		mu.Lock()
		*order = append(*order, name)
		mu.Unlock()
		return err
	}
}

func TestSeries(t *testing.T) {
	var mu sync.Mutex
	var order []string

	err := Series(
		recordTask(&mu, &order, "a", nil),
		recordTask(&mu, &order, "b", nil),
		recordTask(&mu, &order, "c", nil),
	)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSeriesStopsAtFirstFailure(t *testing.T) {
	var mu sync.Mutex
	var order []string
	boom := errors.New("boom")

	err := Series(
		recordTask(&mu, &order, "a", nil),
		recordTask(&mu, &order, "b", boom),
		recordTask(&mu, &order, "c", nil),
	)(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSeriesHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var mu sync.Mutex
	var order []string
	err := Series(recordTask(&mu, &order, "a", nil))(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, order)
}

func TestParallelRunsEveryTask(t *testing.T) {
	var mu sync.Mutex
	var order []string

	err := Parallel(
		recordTask(&mu, &order, "a", nil),
		recordTask(&mu, &order, "b", nil),
		recordTask(&mu, &order, "c", nil),
	)(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, order)
}

func TestParallelCancelsSiblingsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	sibling := make(chan error, 1)

	err := Parallel(
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				sibling <- ctx.Err()
			case <-time.After(5 * time.Second):
				sibling <- errors.New("not cancelled")
			}
			return nil
		},
	)(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, <-sibling, context.Canceled)
}

func TestRunnerRunsAndRecords(t *testing.T) {
	rec := logging.NewRecorder()
	r := NewRunner(rec, nil)

	calls := 0
	r.Register("one", "first task", func(ctx context.Context) error {
		calls++
		return nil
	})
	r.Register("two", "second task", Series(r.Ref("one"), r.Ref("one")))

	require.NoError(t, r.Run(context.Background(), "two"))
	assert.Equal(t, 2, calls)

	snap := r.Metrics().GetSnapshot()
	assert.EqualValues(t, 3, snap.TasksRun)
	assert.EqualValues(t, 0, snap.TasksFailed)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "one", snap.Tasks[0].Name)
	assert.Equal(t, "two", snap.Tasks[1].Name)

	var completed int
	for _, e := range rec.EntriesAt(logging.LevelInfo) {
		if e.Message == "Operation completed" {
			completed++
		}
	}
	assert.Equal(t, 3, completed)
}

func TestRunnerFailure(t *testing.T) {
	rec := logging.NewRecorder()
	r := NewRunner(rec, nil)
	boom := errors.New("boom")
	r.Register("bad", "", func(ctx context.Context) error { return boom })

	err := r.Run(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task bad")
	assert.EqualValues(t, 1, r.Metrics().TasksFailed.Load())
	assert.Equal(t, 0.0, r.Metrics().GetSuccessRate())

	errs := rec.EntriesAt(logging.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Operation failed", errs[0].Message)
}

func TestRunnerUnknownTask(t *testing.T) {
	r := NewRunner(nil, nil)
	err := r.Run(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
	assert.False(t, r.Has("nope"))
}

func TestRunnerTasksSorted(t *testing.T) {
	r := NewRunner(nil, nil)
	noop := func(context.Context) error { return nil }
	r.Register("styles", "s", noop)
	r.Register("build", "b", noop)
	r.Register("clean", "c", noop)

	var names []string
	for _, task := range r.Tasks() {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{"build", "clean", "styles"}, names)
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordTask("a", time.Millisecond, nil)
	m.RecordTask("a", time.Millisecond, errors.New("x"))
	m.RecordWrite(10)
	m.PagesRendered.Inc()

	snap := m.GetSnapshot()
	assert.EqualValues(t, 2, snap.TasksRun)
	assert.EqualValues(t, 10, snap.BytesWritten)
	assert.Equal(t, 2*time.Millisecond, snap.Tasks[0].Duration)
	assert.Equal(t, 50.0, m.GetSuccessRate())

	m.Reset()
	snap = m.GetSnapshot()
	assert.Zero(t, snap.TasksRun)
	assert.Zero(t, snap.PagesRendered)
	assert.Empty(t, snap.Tasks)
}
