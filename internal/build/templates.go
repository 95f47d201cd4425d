package build

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/renderer"
	"github.com/landingkit/lander/internal/resolver"
	"github.com/landingkit/lander/internal/scanner"
)

// page is one template scheduled for rendering.
type page struct {
	file scanner.File
	// out is the output path relative to the dist root.
	out string
}

// OutputPath returns the page path, relative to the dist root, that the
// template at rel renders to: its directory with htmlFileName as basename.
func OutputPath(rel, htmlFileName string) string {
	dir := path.Dir(rel)
	name := htmlFileName + ".html"
	if dir == "." {
		return name
	}
	return dir + "/" + name
}

// Templates renders every template into dist. Problems with a single page
// are collected and summarized; the task fails only when
// templates.fail_on_error is set and an error-level issue was recorded.
func (p *Pipeline) Templates(ctx context.Context) error {
	p.issues.Clear()

	engine, err := renderer.New(ctx, p.fs, renderer.Options{
		PartialsDir:    p.cfg.Paths.Partials,
		IgnorePartials: p.cfg.Templates.IgnorePartials,
	}, p.logger)
	if err != nil {
		return fmt.Errorf("load partials: %w", err)
	}

	res, err := resolver.New(p.fs, p.site, resolver.OptionsFromConfig(p.cfg), p.logger)
	if err != nil {
		return err
	}

	files, err := p.scan(ctx, p.cfg.Paths.Templates, scanner.Options{Include: []string{p.cfg.Templates.Pattern}})
	if err != nil {
		return err
	}

	pages := p.planPages(files)

	g, gctx := errgroup.WithContext(ctx)
	workers := p.cfg.Templates.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for _, pg := range pages {
		pg := pg
		g.Go(func() error {
			return p.renderPage(gctx, engine, res, pg)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if p.issues.Len() > 0 {
		p.logger.Warn(ctx, nil, "Templates finished with issues",
			"pages", len(pages),
			"summary", p.issues.Summary(),
		)
	} else {
		p.logger.Info(ctx, "Templates written", "pages", len(pages))
	}

	if p.cfg.Templates.FailOnError && p.issues.HasErrors() {
		return fmt.Errorf("templates: %s", p.issues.Summary())
	}
	return nil
}

// planPages maps templates to output paths. When two templates of one
// directory would write the same page, the first in path order wins and the
// others are recorded as render issues.
func (p *Pipeline) planPages(files []scanner.File) []page {
	owners := make(map[string]string, len(files))
	pages := make([]page, 0, len(files))
	for _, f := range files {
		out := OutputPath(f.RelPath, p.site.HTMLFileName)
		if owner, taken := owners[out]; taken {
			p.issues.Add(lerrors.NewRenderError(f.RelPath,
				fmt.Errorf("output %s is already produced by %s", out, owner)))
			continue
		}
		owners[out] = f.RelPath
		pages = append(pages, page{file: f, out: out})
	}
	return pages
}

// renderPage resolves, renders and writes one page. Only context
// cancellation is returned; every other failure becomes an issue.
func (p *Pipeline) renderPage(ctx context.Context, engine *renderer.Engine, res *resolver.Resolver, pg page) error {
	rel := pg.file.RelPath

	result, err := res.Resolve(ctx, rel)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		p.metrics.PagesFailed.Inc()
		p.issues.AddError(err)
		return nil
	}
	for _, issue := range result.Issues {
		p.issues.Add(issue)
	}

	html, err := engine.RenderFile(ctx, pg.file.Path, map[string]interface{}(result.Context))
	if err != nil {
		p.metrics.PagesFailed.Inc()
		p.logger.Error(ctx, err, "Template render failed", "path", rel)
		p.issues.Add(lerrors.NewRenderError(rel, err))
		return nil
	}

	if err := p.writeFile(filepath.Join(p.cfg.Paths.Dist, filepath.FromSlash(pg.out)), []byte(html)); err != nil {
		p.metrics.PagesFailed.Inc()
		p.issues.AddError(err)
		return nil
	}
	p.metrics.PagesRendered.Inc()
	p.logger.Debug(ctx, "Page written", "path", rel, "output", pg.out)
	return nil
}
