package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFs(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash(f), []byte("x"), 0o644))
	}
	return fs
}

func relPaths(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

func TestScanTemplates(t *testing.T) {
	fs := newTestFs(t,
		"src/templates/ub/de/index.hbs",
		"src/templates/ub/index.hbs",
		"src/templates/am-jp/index.hbs",
		"src/templates/top.hbs",
		"src/templates/ub/notes.txt",
	)
	s := New(fs, nil)

	files, err := s.Scan(context.Background(), "src/templates", Options{Include: []string{"**/*.hbs"}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"am-jp/index.hbs",
		"top.hbs",
		"ub/de/index.hbs",
		"ub/index.hbs",
	}, relPaths(files))
	assert.Equal(t, filepath.Join("src/templates", "ub", "de", "index.hbs"), files[2].Path)
	assert.Equal(t, int64(1), files[2].Size)
}

func TestScanExcludesPartialsByBaseName(t *testing.T) {
	fs := newTestFs(t,
		"src/less/main.less",
		"src/less/_variables.less",
		"src/less/pages/promo.less",
		"src/less/pages/_mixins.less",
	)
	s := New(fs, nil)

	files, err := s.Scan(context.Background(), "src/less", Options{
		Include: []string{"**/*.less"},
		Exclude: []string{"_*.less"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.less", "pages/promo.less"}, relPaths(files))
}

func TestScanTopLevelOnly(t *testing.T) {
	fs := newTestFs(t, "src/font/a.woff", "src/font/sub/b.woff")
	s := New(fs, nil)

	files, err := s.Scan(context.Background(), "src/font", Options{Include: []string{"*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.woff"}, relPaths(files))
}

func TestScanPathExclude(t *testing.T) {
	fs := newTestFs(t, "src/img/a.png", "src/img/raw/b.png", "src/img/raw/sub/c.png")
	s := New(fs, nil)

	files, err := s.Scan(context.Background(), "src/img", Options{Exclude: []string{"raw/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, relPaths(files))
}

func TestScanMissingRoot(t *testing.T) {
	s := New(afero.NewMemMapFs(), nil)

	files, err := s.Scan(context.Background(), "src/resources", Options{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanRootIsFile(t *testing.T) {
	fs := newTestFs(t, "data.yml")
	s := New(fs, nil)

	_, err := s.Scan(context.Background(), "data.yml", Options{})
	assert.Error(t, err)
}

func TestScanInvalidPattern(t *testing.T) {
	s := New(afero.NewMemMapFs(), nil)

	_, err := s.Scan(context.Background(), "src", Options{Include: []string{"[unclosed"}})
	assert.Error(t, err)

	_, err = s.Scan(context.Background(), "src", Options{Exclude: []string{"[z-"}})
	assert.Error(t, err)
}

func TestScanCancelled(t *testing.T) {
	fs := newTestFs(t, "src/js/a.js", "src/js/b.js")
	s := New(fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, "src/js", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher(Options{
		Include: []string{"**/*.hbs", "./*.html"},
		Exclude: []string{"draft-*"},
	})
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"index.hbs", true},
		{"ub/de/index.hbs", true},
		{"page.html", true},
		{"ub/page.html", false},
		{"ub/draft-index.hbs", false},
		{"ub/index.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}
