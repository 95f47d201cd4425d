// Package renderer renders Handlebars page templates.
//
// An Engine owns the partials and helpers of one build; nothing is registered
// globally. Partials are loaded from a directory and named by their path
// relative to it without extension ("common/footer"). Every render works on
// clones of the parsed templates so that the per-render layout state
// (extend/block/content) never leaks between pages rendered concurrently.
package renderer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/logging"
	"github.com/landingkit/lander/internal/scanner"
)

// Options configure an Engine.
type Options struct {
	// PartialsDir is scanned for partials; empty disables loading.
	PartialsDir string
	// PartialPattern selects partial files, "**/*.hbs" by default.
	PartialPattern string
	// IgnorePartials renders references to unknown partials as empty
	// instead of failing the page.
	IgnorePartials bool
}

// Engine renders templates with a fixed set of partials and helpers.
type Engine struct {
	fs     afero.Fs
	opts   Options
	logger logging.Logger

	mu       sync.RWMutex
	partials map[string]*partial
	helpers  map[string]interface{}
}

type partial struct {
	source string
	tpl    *raymond.Template
}

// New creates an Engine and loads the partials of opts.PartialsDir.
func New(ctx context.Context, fs afero.Fs, opts Options, logger logging.Logger) (*Engine, error) {
	if opts.PartialPattern == "" {
		opts.PartialPattern = "**/*.hbs"
	}
	e := &Engine{
		fs:       fs,
		opts:     opts,
		logger:   logging.OrNop(logger).WithComponent("renderer"),
		partials: make(map[string]*partial),
		helpers:  make(map[string]interface{}),
	}

	if opts.PartialsDir != "" {
		if err := e.LoadPartials(ctx, opts.PartialsDir); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// LoadPartials registers every partial found under dir.
func (e *Engine) LoadPartials(ctx context.Context, dir string) error {
	files, err := scanner.New(e.fs, e.logger).Scan(ctx, dir, scanner.Options{
		Include: []string{e.opts.PartialPattern},
	})
	if err != nil {
		return fmt.Errorf("load partials: %w", err)
	}

	for _, f := range files {
		source, err := afero.ReadFile(e.fs, f.Path)
		if err != nil {
			return fmt.Errorf("read partial %s: %w", f.Path, err)
		}
		name := strings.TrimSuffix(f.RelPath, path.Ext(f.RelPath))
		if err := e.RegisterPartial(name, string(source)); err != nil {
			return fmt.Errorf("partial %s: %w", f.Path, err)
		}
	}

	e.logger.Debug(ctx, "Loaded partials", "dir", dir, "count", len(files))
	return nil
}

// RegisterPartial parses and registers a partial, replacing any partial of
// the same name.
func (e *Engine) RegisterPartial(name, source string) error {
	if err := validatePartialName(name); err != nil {
		return err
	}
	tpl, err := raymond.Parse(source)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.partials[name] = &partial{source: source, tpl: tpl}
	return nil
}

// RegisterHelper adds a helper available to every render. Built-in helpers
// cannot be replaced.
func (e *Engine) RegisterHelper(name string, helper interface{}) error {
	if _, builtin := builtinHelperNames[name]; builtin {
		return fmt.Errorf("helper %q is built in", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.helpers[name] = helper
	return nil
}

// Partials returns the registered partial names in sorted order.
func (e *Engine) Partials() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.partials))
	for name := range e.partials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders source with data. name identifies the template in errors
// and diagnostics.
func (e *Engine) Render(ctx context.Context, name, source string, data interface{}) (string, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}

	e.mu.RLock()
	partials := make(map[string]*partial, len(e.partials))
	for k, v := range e.partials {
		partials[k] = v
	}
	extra := make(map[string]interface{}, len(e.helpers))
	for k, v := range e.helpers {
		extra[k] = v
	}
	e.mu.RUnlock()

	if e.opts.IgnorePartials {
		missing := missingPartials(source, partials)
		for _, ref := range missing {
			e.logger.Warn(ctx, nil, "Unknown partial rendered as empty", "template", name, "partial", ref)
			partials[ref] = &partial{tpl: emptyTemplate()}
		}
	}

	r := &render{
		partials: partials,
		extra:    extra,
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	out, err := r.exec(tpl, data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

// RenderFile reads the template at path and renders it with data.
func (e *Engine) RenderFile(ctx context.Context, path string, data interface{}) (string, error) {
	source, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return e.Render(ctx, path, string(source), data)
}

// render is the state of one page render.
type render struct {
	partials map[string]*partial
	extra    map[string]interface{}
	// layouts is the stack of content actions, one frame per active extend.
	layouts []map[string][]action
}

// exec runs a clone of tpl with the render's helpers and partials.
func (r *render) exec(tpl *raymond.Template, data interface{}) (string, error) {
	t := tpl.Clone()
	t.RegisterHelpers(r.extra)
	t.RegisterHelpers(r.helpers())
	for name, p := range r.partials {
		t.RegisterPartialTemplate(name, p.tpl)
	}
	return t.Exec(data)
}

func emptyTemplate() *raymond.Template {
	return raymond.MustParse("")
}

func validatePartialName(name string) error {
	clean := filepath.ToSlash(filepath.Clean(name))
	if name == "" || clean == "." {
		return fmt.Errorf("empty partial name")
	}
	if strings.HasPrefix(clean, "../") || clean == ".." || strings.HasPrefix(clean, "/") {
		return fmt.Errorf("partial name escapes the partials directory: %s", name)
	}
	return nil
}
