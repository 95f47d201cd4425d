// Package scanner discovers source files for the build stages.
//
// The scanner walks a root directory on an afero filesystem and selects files
// with gobwas/glob patterns. Include patterns are matched against the
// slash-separated path relative to the root, so "*" stays within one
// directory and "**" crosses directories; a leading "**/" also matches files
// directly under the root. Exclude patterns without a slash match the base
// name at any depth ("_*.less"), patterns with a slash match the relative
// path. Results are sorted by relative path so that a build processes pages
// in a stable order.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/logging"
)

// File is one discovered source file.
type File struct {
	// RelPath is slash-separated and relative to the scanned root.
	RelPath string
	// Path is the filesystem path, root joined with RelPath.
	Path    string
	Size    int64
	ModTime time.Time
}

// Options select the files of one scan.
type Options struct {
	Include []string
	Exclude []string
}

// Matcher tests relative paths against compiled include and exclude globs.
type Matcher struct {
	include     []glob.Glob
	excludeBase []glob.Glob
	excludePath []glob.Glob
}

// NewMatcher compiles the patterns of opts. An empty include list matches
// every file.
func NewMatcher(opts Options) (*Matcher, error) {
	m := &Matcher{}

	includes := opts.Include
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	for _, pattern := range includes {
		globs, err := compileInclude(pattern)
		if err != nil {
			return nil, err
		}
		m.include = append(m.include, globs...)
	}

	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if strings.Contains(pattern, "/") {
			m.excludePath = append(m.excludePath, g)
		} else {
			m.excludeBase = append(m.excludeBase, g)
		}
	}

	return m, nil
}

func compileInclude(pattern string) ([]glob.Glob, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
	}
	globs := []glob.Glob{g}

	if rest := strings.TrimPrefix(pattern, "**/"); rest != pattern {
		rg, err := glob.Compile(rest, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		globs = append(globs, rg)
	}
	return globs, nil
}

// Match reports whether rel is selected.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if m.Excluded(rel) {
		return false
	}
	for _, g := range m.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Excluded reports whether rel hits an exclude pattern.
func (m *Matcher) Excluded(rel string) bool {
	base := path.Base(rel)
	for _, g := range m.excludeBase {
		if g.Match(base) {
			return true
		}
	}
	for _, g := range m.excludePath {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Scanner walks source trees.
type Scanner struct {
	fs     afero.Fs
	logger logging.Logger
}

// New creates a scanner over fs.
func New(fs afero.Fs, logger logging.Logger) *Scanner {
	return &Scanner{
		fs:     fs,
		logger: logging.OrNop(logger).WithComponent("scanner"),
	}
}

// Scan returns the files under root selected by opts. A missing root yields
// no files. The walk stops early when ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]File, error) {
	matcher, err := NewMatcher(opts)
	if err != nil {
		return nil, err
	}
	return s.ScanMatcher(ctx, root, matcher)
}

// ScanMatcher is Scan with a precompiled matcher.
func (s *Scanner) ScanMatcher(ctx context.Context, root string, matcher *Matcher) ([]File, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug(ctx, "Source directory does not exist", "root", root)
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []File
	err = afero.Walk(s.fs, root, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matcher.Match(rel) {
			return nil
		}

		files = append(files, File{
			RelPath: rel,
			Path:    p,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	s.logger.Debug(ctx, "Scanned source directory", "root", root, "files", len(files))
	return files, nil
}
