// Package build turns the source tree into the deployable dist tree.
//
// The work is split into named tasks (clean, styles, scripts, images, fonts,
// resources, templates and their optimized variants) composed with Series
// and Parallel into the build and build:optimized graphs. A Pipeline owns
// the collaborators every task shares: the filesystem, the project and site
// configuration, the minifier and the metrics of the process.
package build

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/config"
	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/logging"
	"github.com/landingkit/lander/internal/minifiers"
	"github.com/landingkit/lander/internal/scanner"
)

// Task names.
const (
	TaskClean              = "clean"
	TaskStyles             = "styles"
	TaskStylesOptimized    = "styles:optimized"
	TaskScripts            = "scripts"
	TaskImages             = "images"
	TaskImagesOptimized    = "images:optimized"
	TaskFonts              = "fonts"
	TaskResources          = "resources"
	TaskTemplates          = "templates"
	TaskTemplatesOptimized = "templates:optimized"
	TaskBuild              = "build"
	TaskBuildOptimized     = "build:optimized"
)

// Pipeline holds the collaborators of every build task.
type Pipeline struct {
	fs        afero.Fs
	cfg       *config.Config
	site      *config.SiteConfig
	logger    logging.Logger
	scanner   *scanner.Scanner
	minifier  minifiers.Client
	compiler  *StyleCompiler
	optimizer *AssetOptimizer
	runner    *Runner
	metrics   *Metrics
	issues    *lerrors.ErrorCollector
}

// NewPipeline creates a pipeline with every task registered on its Runner.
func NewPipeline(fs afero.Fs, cfg *config.Config, site *config.SiteConfig, logger logging.Logger) (*Pipeline, error) {
	if fs == nil {
		return nil, fmt.Errorf("build: filesystem is required")
	}
	if cfg == nil || site == nil {
		return nil, fmt.Errorf("build: project and site configuration are required")
	}

	compiler, err := NewStyleCompiler(cfg.Styles.Compiler)
	if err != nil {
		return nil, fmt.Errorf("styles.compiler: %w", err)
	}

	logger = logging.OrNop(logger).WithComponent("build")
	metrics := NewMetrics()
	issues := lerrors.NewErrorCollector()
	minifier := minifiers.New(minifiers.DefaultConfig())

	p := &Pipeline{
		fs:        fs,
		cfg:       cfg,
		site:      site,
		logger:    logger,
		scanner:   scanner.New(fs, logger),
		minifier:  minifier,
		compiler:  compiler,
		optimizer: NewAssetOptimizer(fs, cfg.Paths.Dist, minifier, issues),
		runner:    NewRunner(logger, metrics),
		metrics:   metrics,
		issues:    issues,
	}
	p.registerTasks()
	return p, nil
}

func (p *Pipeline) registerTasks() {
	r := p.runner

	r.Register(TaskClean, "Remove the output directory", p.Clean)
	r.Register(TaskStyles, "Compile stylesheets", func(ctx context.Context) error {
		return p.Styles(ctx, false)
	})
	r.Register(TaskStylesOptimized, "Compile and minify stylesheets", func(ctx context.Context) error {
		return p.Styles(ctx, true)
	})
	r.Register(TaskScripts, "Minify scripts", p.Scripts)
	r.Register(TaskImages, "Copy images", func(ctx context.Context) error {
		return p.Images(ctx, false)
	})
	r.Register(TaskImagesOptimized, "Copy images, minifying SVG", func(ctx context.Context) error {
		return p.Images(ctx, true)
	})
	r.Register(TaskFonts, "Copy fonts", p.Fonts)
	r.Register(TaskResources, "Copy resources", p.Resources)
	r.Register(TaskTemplates, "Render page templates", p.Templates)
	r.Register(TaskTemplatesOptimized, "Render pages, inline marked assets and minify",
		Series(r.Ref(TaskTemplates), p.OptimizePages))

	r.Register(TaskBuild, "Clean and build every asset",
		Series(
			r.Ref(TaskClean),
			Parallel(
				r.Ref(TaskStyles),
				r.Ref(TaskImages),
				r.Ref(TaskFonts),
				r.Ref(TaskResources),
				r.Ref(TaskScripts),
				r.Ref(TaskTemplates),
			),
		))

	// Inlining reads the dist tree, so optimized pages are produced after
	// the assets they may embed.
	r.Register(TaskBuildOptimized, "Clean and build every asset for production",
		Series(
			r.Ref(TaskClean),
			Parallel(
				r.Ref(TaskStylesOptimized),
				r.Ref(TaskImagesOptimized),
				r.Ref(TaskFonts),
				r.Ref(TaskResources),
				r.Ref(TaskScripts),
			),
			r.Ref(TaskTemplatesOptimized),
		))
}

// Run executes the named task.
func (p *Pipeline) Run(ctx context.Context, task string) error {
	return p.runner.Run(ctx, task)
}

// Runner returns the task registry, for registering additional tasks.
func (p *Pipeline) Runner() *Runner {
	return p.runner
}

// Metrics returns the metrics of the pipeline.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Issues returns the issues recorded by the last templates run and by page
// optimization.
func (p *Pipeline) Issues() *lerrors.ErrorCollector {
	return p.issues
}

// Config returns the project configuration.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Site returns the site configuration.
func (p *Pipeline) Site() *config.SiteConfig {
	return p.site
}
