// Package errors defines the typed failures of the build pipeline and a
// collector that accumulates the recoverable ones across a batch.
package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrorCollector accumulates pipeline issues from concurrent page renders.
type ErrorCollector struct {
	issues []*PipelineError
	errors []error
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		issues: make([]*PipelineError, 0),
		errors: make([]error, 0),
	}
}

// Add records a pipeline issue. Nil is ignored.
func (ec *ErrorCollector) Add(issue *PipelineError) {
	if issue == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.issues = append(ec.issues, issue)
}

// AddError records any error. PipelineErrors are kept as issues.
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	if pe, ok := err.(*PipelineError); ok {
		ec.Add(pe)
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// Issues returns a copy of the recorded pipeline issues.
func (ec *ErrorCollector) Issues() []*PipelineError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]*PipelineError, len(ec.issues))
	copy(result, ec.issues)
	return result
}

// GetAllErrors returns every recorded error, issues first.
func (ec *ErrorCollector) GetAllErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	all := make([]error, 0, len(ec.issues)+len(ec.errors))
	for _, issue := range ec.issues {
		all = append(all, issue)
	}
	all = append(all, ec.errors...)

	return all
}

// HasErrors reports whether anything above warning severity was recorded.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	if len(ec.errors) > 0 {
		return true
	}
	for _, issue := range ec.issues {
		if issue.Severity() >= ErrorSeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of recorded entries.
func (ec *ErrorCollector) Len() int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.issues) + len(ec.errors)
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.issues = ec.issues[:0]
	ec.errors = ec.errors[:0]
}

// ByKind returns the issues of one kind.
func (ec *ErrorCollector) ByKind(kind Kind) []*PipelineError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	var result []*PipelineError
	for _, issue := range ec.issues {
		if issue.Kind == kind {
			result = append(result, issue)
		}
	}
	return result
}

// ByPath returns the issues naming path.
func (ec *ErrorCollector) ByPath(path string) []*PipelineError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	var result []*PipelineError
	for _, issue := range ec.issues {
		if issue.Path == path {
			result = append(result, issue)
		}
	}
	return result
}

// Summary renders a per-kind count followed by one line per issue, e.g.
//
//	2 issues (missing_data_file: 1, render: 1)
//	  warning [DATA_NOT_FOUND] src/yml/ub/fr.yml locale data file not found
//	  error [TEMPLATE_RENDER] ub/index.hbs template render failed: ...
func (ec *ErrorCollector) Summary() string {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	total := len(ec.issues) + len(ec.errors)
	if total == 0 {
		return "no issues"
	}

	counts := make(map[Kind]int)
	for _, issue := range ec.issues {
		counts[issue.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var b strings.Builder
	noun := "issues"
	if total == 1 {
		noun = "issue"
	}
	fmt.Fprintf(&b, "%d %s", total, noun)
	if len(kinds) > 0 {
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s: %d", k, counts[Kind(k)]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}

	for _, issue := range ec.issues {
		fmt.Fprintf(&b, "\n  %s %s", issue.Severity(), issue.Error())
	}
	for _, err := range ec.errors {
		fmt.Fprintf(&b, "\n  %s %s", ErrorSeverityError, err.Error())
	}

	return b.String()
}
