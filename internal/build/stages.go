package build

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/minifiers"
	"github.com/landingkit/lander/internal/scanner"
)

// Output directories below the dist root.
const (
	DirCSS       = "css"
	DirJS        = "js"
	DirImages    = "img"
	DirFonts     = "font"
	DirResources = "resources"
)

// Clean removes the output tree.
func (p *Pipeline) Clean(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.fs.RemoveAll(p.cfg.Paths.Dist); err != nil {
		return fmt.Errorf("clean %s: %w", p.cfg.Paths.Dist, err)
	}
	p.logger.Debug(ctx, "Removed output directory", "dir", p.cfg.Paths.Dist)
	return nil
}

// Styles writes every stylesheet that is not a partial (a "_" prefixed file)
// to dist/css with the configured suffix. Sources go through the external
// compiler when one is configured. Optimized output is minified.
func (p *Pipeline) Styles(ctx context.Context, optimized bool) error {
	files, err := p.scan(ctx, p.cfg.Paths.Styles, scanner.Options{
		Include: []string{p.cfg.Styles.Pattern},
		Exclude: []string{"_*"},
	})
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		var css []byte
		if p.compiler != nil {
			css, err = p.compiler.Compile(ctx, f.Path)
		} else {
			css, err = afero.ReadFile(p.fs, f.Path)
		}
		if err != nil {
			return lerrors.NewAssetError(f.Path, "compile stylesheet", err)
		}

		if optimized {
			if css, err = p.minifier.Bytes(minifiers.MediaCSS, css); err != nil {
				return lerrors.NewAssetError(f.Path, "minify stylesheet", err)
			}
		}

		rel := strings.TrimSuffix(f.RelPath, path.Ext(f.RelPath)) + p.cfg.Styles.Suffix + ".css"
		if err := p.writeFile(filepath.Join(p.cfg.Paths.Dist, DirCSS, filepath.FromSlash(rel)), css); err != nil {
			return err
		}
	}

	p.logger.Info(ctx, "Styles written", "count", len(files), "optimized", optimized)
	return nil
}

// Scripts minifies every script into dist/js.
func (p *Pipeline) Scripts(ctx context.Context) error {
	files, err := p.scan(ctx, p.cfg.Paths.Scripts, scanner.Options{Include: []string{"**/*.js"}})
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := afero.ReadFile(p.fs, f.Path)
		if err != nil {
			return lerrors.NewAssetError(f.Path, "read script", err)
		}
		out, err := p.minifier.Bytes(minifiers.MediaJS, src)
		if err != nil {
			return lerrors.NewAssetError(f.Path, "minify script", err)
		}
		if err := p.writeFile(filepath.Join(p.cfg.Paths.Dist, DirJS, filepath.FromSlash(f.RelPath)), out); err != nil {
			return err
		}
	}

	p.logger.Info(ctx, "Scripts written", "count", len(files))
	return nil
}

// Images copies the image tree into dist/img. Optimized output has its SVG
// files minified; other formats are copied as they are.
func (p *Pipeline) Images(ctx context.Context, optimized bool) error {
	transform := func(f scanner.File, data []byte) ([]byte, error) {
		if !optimized || minifiers.MediaTypeFor(f.RelPath) != minifiers.MediaSVG {
			return data, nil
		}
		return p.minifier.Bytes(minifiers.MediaSVG, data)
	}
	n, err := p.copyTree(ctx, p.cfg.Paths.Images, DirImages, "**", transform)
	if err != nil {
		return err
	}
	p.logger.Info(ctx, "Images written", "count", n, "optimized", optimized)
	return nil
}

// Fonts copies the top-level font files into dist/font.
func (p *Pipeline) Fonts(ctx context.Context) error {
	n, err := p.copyTree(ctx, p.cfg.Paths.Fonts, DirFonts, "*", nil)
	if err != nil {
		return err
	}
	p.logger.Info(ctx, "Fonts written", "count", n)
	return nil
}

// Resources copies the top-level resource files into dist/resources.
func (p *Pipeline) Resources(ctx context.Context) error {
	n, err := p.copyTree(ctx, p.cfg.Paths.Resources, DirResources, "*", nil)
	if err != nil {
		return err
	}
	p.logger.Info(ctx, "Resources written", "count", n)
	return nil
}

type transformFunc func(f scanner.File, data []byte) ([]byte, error)

func (p *Pipeline) copyTree(ctx context.Context, srcDir, distDir, pattern string, transform transformFunc) (int, error) {
	files, err := p.scan(ctx, srcDir, scanner.Options{Include: []string{pattern}})
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		data, err := afero.ReadFile(p.fs, f.Path)
		if err != nil {
			return 0, lerrors.NewAssetError(f.Path, "read asset", err)
		}
		if transform != nil {
			if data, err = transform(f, data); err != nil {
				return 0, lerrors.NewAssetError(f.Path, "transform asset", err)
			}
		}
		if err := p.writeFile(filepath.Join(p.cfg.Paths.Dist, distDir, filepath.FromSlash(f.RelPath)), data); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

func (p *Pipeline) scan(ctx context.Context, root string, opts scanner.Options) ([]scanner.File, error) {
	files, err := p.scanner.Scan(ctx, root, opts)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

func (p *Pipeline) writeFile(name string, data []byte) error {
	if err := p.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return lerrors.NewAssetError(name, "create output directory", err)
	}
	if err := afero.WriteFile(p.fs, name, data, os.FileMode(0o644)); err != nil {
		return lerrors.NewAssetError(name, "write output", err)
	}
	p.metrics.RecordWrite(len(data))
	return nil
}
