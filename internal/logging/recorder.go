package logging

import (
	"context"
	"sync"
)

// Entry is one record captured by a Recorder.
type Entry struct {
	Level     LogLevel
	Component string
	Message   string
	Err       error
	Fields    map[string]interface{}
}

// Recorder is a Logger that keeps every entry in memory. Loggers derived with
// With or WithComponent share the parent's entry list.
type Recorder struct {
	sink      *recorderSink
	component string
	fields    map[string]interface{}
}

type recorderSink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{sink: &recorderSink{}, fields: map[string]interface{}{}}
}

func (r *Recorder) Debug(_ context.Context, msg string, fields ...interface{}) {
	r.record(LevelDebug, nil, msg, fields)
}

func (r *Recorder) Info(_ context.Context, msg string, fields ...interface{}) {
	r.record(LevelInfo, nil, msg, fields)
}

func (r *Recorder) Warn(_ context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelWarn, err, msg, fields)
}

func (r *Recorder) Error(_ context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelError, err, msg, fields)
}

func (r *Recorder) Fatal(_ context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelFatal, err, msg, fields)
}

func (r *Recorder) With(fields ...interface{}) Logger {
	merged := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			merged[key] = fields[i+1]
		}
	}
	return &Recorder{sink: r.sink, component: r.component, fields: merged}
}

func (r *Recorder) WithComponent(component string) Logger {
	return &Recorder{sink: r.sink, component: component, fields: r.fields}
}

func (r *Recorder) record(level LogLevel, err error, msg string, fields []interface{}) {
	all := make(map[string]interface{}, len(r.fields)+len(fields)/2)
	for k, v := range r.fields {
		all[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			all[key] = fields[i+1]
		}
	}

	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.entries = append(r.sink.entries, Entry{
		Level:     level,
		Component: r.component,
		Message:   msg,
		Err:       err,
		Fields:    all,
	})
}

// Entries returns a copy of the captured entries.
func (r *Recorder) Entries() []Entry {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	out := make([]Entry, len(r.sink.entries))
	copy(out, r.sink.entries)
	return out
}

// EntriesAt returns the captured entries of one level.
func (r *Recorder) EntriesAt(level LogLevel) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
