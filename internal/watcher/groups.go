package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/landingkit/lander/internal/config"
	"github.com/landingkit/lander/internal/logging"
	"github.com/landingkit/lander/internal/scanner"
)

// Group routes changes below Root that match one of Patterns to Task.
type Group struct {
	Name     string
	Root     string
	Patterns []string
	Task     string

	matcher *scanner.Matcher
}

// DefaultGroups returns the watch groups of a project: template sources,
// partials and locale data rebuild the pages, the other source trees rebuild
// their own output.
func DefaultGroups(cfg *config.Config) []Group {
	return []Group{
		{Name: "templates", Root: cfg.Paths.Templates, Patterns: []string{cfg.Templates.Pattern}, Task: "templates"},
		{Name: "partials", Root: cfg.Paths.Partials, Patterns: []string{"**/*.hbs"}, Task: "templates"},
		{Name: "data", Root: cfg.Paths.Data, Patterns: []string{"**/*.yml", "**/*.yaml"}, Task: "templates"},
		{Name: "styles", Root: cfg.Paths.Styles, Patterns: []string{cfg.Styles.Pattern, "**/*.css"}, Task: "styles"},
		{Name: "images", Root: cfg.Paths.Images, Patterns: []string{"**"}, Task: "images"},
		{Name: "scripts", Root: cfg.Paths.Scripts, Patterns: []string{"**/*.js"}, Task: "scripts"},
	}
}

// RunFunc runs a named build task.
type RunFunc func(ctx context.Context, task string) error

// ReloadFunc is called after a task triggered by a change succeeded.
type ReloadFunc func(ctx context.Context, task string)

// Router maps change batches to tasks and runs them.
type Router struct {
	groups []Group
	run    RunFunc
	reload ReloadFunc
	logger logging.Logger
}

// NewRouter compiles the group patterns.
func NewRouter(groups []Group, run RunFunc, reload ReloadFunc, logger logging.Logger) (*Router, error) {
	if run == nil {
		return nil, fmt.Errorf("watch router: run function is required")
	}
	compiled := make([]Group, 0, len(groups))
	for _, g := range groups {
		m, err := scanner.NewMatcher(scanner.Options{Include: g.Patterns})
		if err != nil {
			return nil, fmt.Errorf("watch group %s: %w", g.Name, err)
		}
		g.matcher = m
		g.Root = filepath.Clean(g.Root)
		compiled = append(compiled, g)
	}
	return &Router{
		groups: compiled,
		run:    run,
		reload: reload,
		logger: logging.OrNop(logger).WithComponent("watch"),
	}, nil
}

// Roots returns the directories the groups watch.
func (r *Router) Roots() []string {
	seen := make(map[string]bool, len(r.groups))
	var roots []string
	for _, g := range r.groups {
		if !seen[g.Root] {
			seen[g.Root] = true
			roots = append(roots, g.Root)
		}
	}
	return roots
}

// Tasks returns the tasks affected by events, each once, in group order.
func (r *Router) Tasks(events []ChangeEvent) []string {
	hit := make(map[string]bool)
	var tasks []string
	for _, g := range r.groups {
		if hit[g.Task] {
			continue
		}
		for _, ev := range events {
			if g.matches(ev.Path) {
				hit[g.Task] = true
				tasks = append(tasks, g.Task)
				break
			}
		}
	}
	return tasks
}

func (g Group) matches(path string) bool {
	rel, err := filepath.Rel(g.Root, filepath.Clean(path))
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	return g.matcher.Match(rel)
}

// Handle runs the tasks a batch affects. A failing task is logged and does
// not stop the others; the errors are returned joined.
func (r *Router) Handle(ctx context.Context, events []ChangeEvent) error {
	tasks := r.Tasks(events)
	if len(tasks) == 0 {
		return nil
	}

	r.logger.Info(ctx, "Changes detected", "files", len(events), "tasks", strings.Join(tasks, ","))

	var errs []error
	for _, task := range tasks {
		if err := r.run(ctx, task); err != nil {
			r.logger.Error(ctx, err, "Rebuild failed", "task", task)
			errs = append(errs, err)
			continue
		}
		if r.reload != nil {
			r.reload(ctx, task)
		}
	}
	return errors.Join(errs...)
}
