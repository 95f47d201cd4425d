package build

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/landingkit/lander/internal/logging"
)

// TaskFunc is one unit of the build graph.
type TaskFunc func(ctx context.Context) error

// Series runs tasks one after another and stops at the first failure.
func Series(tasks ...TaskFunc) TaskFunc {
	return func(ctx context.Context) error {
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Parallel runs tasks concurrently. The first failure cancels the context of
// the others and is returned once all have finished.
func Parallel(tasks ...TaskFunc) TaskFunc {
	return func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, task := range tasks {
			task := task
			g.Go(func() error { return task(gctx) })
		}
		return g.Wait()
	}
}

// Task is a named entry of the Runner.
type Task struct {
	Name        string
	Description string
	Run         TaskFunc
}

// Runner holds the named tasks of a build and times every run.
type Runner struct {
	logger  logging.Logger
	metrics *Metrics

	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRunner creates an empty task registry.
func NewRunner(logger logging.Logger, metrics *Metrics) *Runner {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Runner{
		logger:  logging.OrNop(logger).WithComponent("tasks"),
		metrics: metrics,
		tasks:   make(map[string]*Task),
	}
}

// Register adds or replaces a named task.
func (r *Runner) Register(name, description string, run TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = &Task{Name: name, Description: description, Run: run}
}

// Ref returns a TaskFunc that runs the named task when invoked. The lookup
// happens at run time so tasks can be registered in any order.
func (r *Runner) Ref(name string) TaskFunc {
	return func(ctx context.Context) error {
		return r.Run(ctx, name)
	}
}

// Run executes the named task, logging and recording its duration.
func (r *Runner) Run(ctx context.Context, name string) error {
	r.mu.RLock()
	task, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}

	op := logging.StartOperation(r.logger, name)
	op.Debug(ctx, "Starting task")

	start := time.Now()
	err := task.Run(ctx)
	r.metrics.RecordTask(name, time.Since(start), err)

	if err != nil {
		op.EndWithError(ctx, err)
		return fmt.Errorf("task %s: %w", name, err)
	}
	op.End(ctx)
	return nil
}

// Has reports whether a task is registered.
func (r *Runner) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// Tasks returns the registered tasks sorted by name.
func (r *Runner) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Metrics returns the metrics the runner records into.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}
