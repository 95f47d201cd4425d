package build

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks task runs and page output of one process. Counters are
// updated from concurrent workers without locking.
type Metrics struct {
	TasksRun      atomic.Int64
	TasksFailed   atomic.Int64
	PagesRendered atomic.Int64
	PagesFailed   atomic.Int64
	FilesWritten  atomic.Int64
	BytesWritten  atomic.Int64

	mutex     sync.RWMutex
	durations map[string]time.Duration
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{durations: make(map[string]time.Duration)}
}

// RecordTask records the outcome of one task run.
func (m *Metrics) RecordTask(name string, d time.Duration, err error) {
	m.TasksRun.Inc()
	if err != nil {
		m.TasksFailed.Inc()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.durations[name] += d
}

// RecordWrite records one written output file.
func (m *Metrics) RecordWrite(size int) {
	m.FilesWritten.Inc()
	m.BytesWritten.Add(int64(size))
}

// TaskDuration is the accumulated run time of one task.
type TaskDuration struct {
	Name     string
	Duration time.Duration
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	TasksRun      int64
	TasksFailed   int64
	PagesRendered int64
	PagesFailed   int64
	FilesWritten  int64
	BytesWritten  int64
	Tasks         []TaskDuration
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mutex.RLock()
	tasks := make([]TaskDuration, 0, len(m.durations))
	for name, d := range m.durations {
		tasks = append(tasks, TaskDuration{Name: name, Duration: d})
	}
	m.mutex.RUnlock()

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })

	return MetricsSnapshot{
		TasksRun:      m.TasksRun.Load(),
		TasksFailed:   m.TasksFailed.Load(),
		PagesRendered: m.PagesRendered.Load(),
		PagesFailed:   m.PagesFailed.Load(),
		FilesWritten:  m.FilesWritten.Load(),
		BytesWritten:  m.BytesWritten.Load(),
		Tasks:         tasks,
	}
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.TasksRun.Store(0)
	m.TasksFailed.Store(0)
	m.PagesRendered.Store(0)
	m.PagesFailed.Store(0)
	m.FilesWritten.Store(0)
	m.BytesWritten.Store(0)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.durations = make(map[string]time.Duration)
}

// GetSuccessRate returns the task success rate as a percentage
func (m *Metrics) GetSuccessRate() float64 {
	run := m.TasksRun.Load()
	if run == 0 {
		return 0.0
	}
	return float64(run-m.TasksFailed.Load()) / float64(run) * 100.0
}
