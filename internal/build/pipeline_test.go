package build

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landingkit/lander/internal/config"
	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/logging"
)

func testSite() *config.SiteConfig {
	return &config.SiteConfig{
		HTMLFileName: "promo",
		Domain:       map[string]string{"ub": "https://ubackup.com"},
		CDNURL:       map[string]string{"ub": "https://cdn.ubackup.com"},
		GTMCode:      map[string]string{"ub": "GTM-UB123"},
	}
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash(name), []byte(content), 0o644))
	}
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, filepath.FromSlash(name))
	require.NoError(t, err)
	return string(data)
}

func exists(t *testing.T, fs afero.Fs, name string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, filepath.FromSlash(name))
	require.NoError(t, err)
	return ok
}

func newTestPipeline(t *testing.T, fs afero.Fs, mutate func(*config.Config)) (*Pipeline, *logging.Recorder) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	rec := logging.NewRecorder()
	p, err := NewPipeline(fs, cfg, testSite(), rec)
	require.NoError(t, err)
	return p, rec
}

var sourceTree = map[string]string{
	"src/templates/ub/de/index.hbs": `<title>{{title}}</title><link rel="canonical" href="{{meta.canonical}}">{{> footer}}`,
	"src/templates/ub/index.hbs":    `<title>{{title}}</title><p>{{language}}</p>`,
	"src/partials/footer.hbs":       `<footer>{{gtm_code}}</footer>`,
	"src/yml/ub/de.yml":             "title: Angebot\nmeta:\n  description: Sichern\n",
	"src/yml/ub/en.yml":             "title: Offer\n",
	"src/less/main.less":            "body { color: red; }\n",
	"src/less/_vars.less":           "@red: red;\n",
	"src/js/app.js":                 "// greeting\nvar answer = 40 + 2;\n",
	"src/img/logo.svg":              `<svg xmlns="http://www.w3.org/2000/svg"><!-- logo --><rect width="10" height="10"/></svg>`,
	"src/img/photos/hero.png":       "\x89PNG raw",
	"src/font/sans.woff":            "woff",
	"src/font/extra/serif.woff":     "woff",
	"src/resources/terms.pdf":       "pdf",
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"ub/de/index.hbs", "ub/de/promo.html"},
		{"ub/index.hbs", "ub/promo.html"},
		{"index.hbs", "promo.html"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.rel, "promo"))
		})
	}
}

func TestBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, sourceTree)
	writeFiles(t, fs, map[string]string{"dist/stale.txt": "old"})
	p, _ := newTestPipeline(t, fs, nil)

	require.NoError(t, p.Run(context.Background(), TaskBuild))

	assert.False(t, exists(t, fs, "dist/stale.txt"), "clean removes previous output")

	de := readFile(t, fs, "dist/ub/de/promo.html")
	assert.Equal(t, `<title>Angebot</title><link rel="canonical" href="https://ubackup.com/de/landing/promo.html"><footer>GTM-UB123</footer>`, de)
	assert.Equal(t, `<title>Offer</title><p>en</p>`, readFile(t, fs, "dist/ub/promo.html"))

	assert.Equal(t, "body { color: red; }\n", readFile(t, fs, "dist/css/main.min.css"))
	assert.False(t, exists(t, fs, "dist/css/_vars.min.css"), "partials are not compiled")

	js := readFile(t, fs, "dist/js/app.js")
	assert.NotContains(t, js, "greeting")
	assert.Equal(t, "var answer=40+2", js)

	assert.Contains(t, readFile(t, fs, "dist/img/logo.svg"), "<!-- logo -->")
	assert.Equal(t, "\x89PNG raw", readFile(t, fs, "dist/img/photos/hero.png"))

	assert.True(t, exists(t, fs, "dist/font/sans.woff"))
	assert.False(t, exists(t, fs, "dist/font/extra/serif.woff"), "fonts are copied from the top level only")
	assert.True(t, exists(t, fs, "dist/resources/terms.pdf"))

	snap := p.Metrics().GetSnapshot()
	assert.EqualValues(t, 8, snap.TasksRun)
	assert.EqualValues(t, 0, snap.TasksFailed)
	assert.EqualValues(t, 2, snap.PagesRendered)
	assert.Equal(t, 0, p.Issues().Len())
}

func TestBuildOptimized(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, sourceTree)
	writeFiles(t, fs, map[string]string{
		"src/templates/ub/de/index.hbs": `<html><head><link rel="stylesheet" href="../../css/main.min.css" inline></head>` +
			`<body>  <img src="../../img/logo.svg" inline>  <a href="../../index.html">{{title}}</a></body></html>`,
	})
	p, _ := newTestPipeline(t, fs, nil)

	require.NoError(t, p.Run(context.Background(), TaskBuildOptimized))

	assert.Equal(t, "body{color:red}", readFile(t, fs, "dist/css/main.min.css"))
	assert.NotContains(t, readFile(t, fs, "dist/img/logo.svg"), "<!--")

	page := readFile(t, fs, "dist/ub/de/promo.html")
	assert.Contains(t, page, "<style>body{color:red}</style>")
	assert.Contains(t, page, "<svg")
	assert.NotContains(t, page, "../")
	assert.NotContains(t, page, "main.min.css")
	assert.Contains(t, page, "index.html")
	assert.Contains(t, page, "Angebot")
	assert.Equal(t, 0, p.Issues().Len())
}

func TestTemplatesCollectIssues(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/templates/ub/de/index.hbs":     `<h1>{{title}}</h1>`,
		"src/templates/ub/de/other.hbs":     `<h1>other</h1>`,
		"src/templates/ub/fr/index.hbs":     `<h1>{{language}}</h1>`,
		"src/templates/a/b/c/deep.hbs":      `deep`,
		"src/templates/ub/it/index.hbs":     `{{#if}}`,
		"src/yml/ub/de.yml":                 "title: Angebot\n",
		"src/partials/layouts/unused.hbs":   `x`,
	})
	p, rec := newTestPipeline(t, fs, nil)

	require.NoError(t, p.Run(context.Background(), TaskTemplates))

	assert.Equal(t, "<h1>Angebot</h1>", readFile(t, fs, "dist/ub/de/promo.html"))
	assert.Equal(t, "<h1>fr</h1>", readFile(t, fs, "dist/ub/fr/promo.html"), "missing data still renders")
	assert.False(t, exists(t, fs, "dist/a/b/c/promo.html"))
	assert.False(t, exists(t, fs, "dist/ub/it/promo.html"))

	issues := p.Issues()
	assert.Len(t, issues.ByKind(lerrors.KindMissingDataFile), 2, "fr and it have no data")
	assert.Len(t, issues.ByKind(lerrors.KindMalformedSourcePath), 1)

	renders := issues.ByKind(lerrors.KindRender)
	require.Len(t, renders, 2)
	var paths []string
	for _, r := range renders {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{"ub/de/other.hbs", "ub/it/index.hbs"}, paths)
	assert.True(t, issues.HasErrors())

	assert.EqualValues(t, 2, p.Metrics().PagesRendered.Load())
	assert.EqualValues(t, 2, p.Metrics().PagesFailed.Load())

	var summary bool
	for _, e := range rec.EntriesAt(logging.LevelWarn) {
		if e.Message == "Templates finished with issues" {
			summary = true
		}
	}
	assert.True(t, summary)
}

func TestTemplatesFailOnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/templates/ub/de/index.hbs": `{{#if}}`,
	})
	p, _ := newTestPipeline(t, fs, func(c *config.Config) { c.Templates.FailOnError = true })

	err := p.Run(context.Background(), TaskTemplates)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPLATE_RENDER")
}

func TestTemplatesWarningsDoNotFail(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/templates/ub/de/index.hbs": `ok`,
	})
	p, _ := newTestPipeline(t, fs, func(c *config.Config) { c.Templates.FailOnError = true })

	require.NoError(t, p.Run(context.Background(), TaskTemplates))
	assert.Len(t, p.Issues().ByKind(lerrors.KindMissingDataFile), 1)
}

func TestTemplatesCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, sourceTree)
	p, _ := newTestPipeline(t, fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Run(ctx, TaskTemplates))
}

func TestStylesOptimized(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/less/main.less":        "body { color: red; }\n",
		"src/less/pages/promo.less": "p  {  margin: 0px; }\n",
	})
	p, _ := newTestPipeline(t, fs, nil)

	require.NoError(t, p.Run(context.Background(), TaskStylesOptimized))
	assert.Equal(t, "body{color:red}", readFile(t, fs, "dist/css/main.min.css"))
	assert.Equal(t, "p{margin:0}", readFile(t, fs, "dist/css/pages/promo.min.css"))
}

func TestScriptsMinifyError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"src/js/broken.js": "var = ;{"})
	p, _ := newTestPipeline(t, fs, nil)

	err := p.Run(context.Background(), TaskScripts)
	require.Error(t, err)
	assert.Equal(t, lerrors.KindAsset, lerrors.KindOf(err))
}

func TestMissingSourceDirectories(t *testing.T) {
	p, _ := newTestPipeline(t, afero.NewMemMapFs(), nil)
	require.NoError(t, p.Run(context.Background(), TaskBuild))
	assert.EqualValues(t, 0, p.Metrics().FilesWritten.Load())
}

func TestNewPipelineValidation(t *testing.T) {
	_, err := NewPipeline(nil, config.Default(), testSite(), nil)
	assert.Error(t, err)
	_, err = NewPipeline(afero.NewMemMapFs(), nil, testSite(), nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Styles.Compiler = "rm -rf"
	_, err = NewPipeline(afero.NewMemMapFs(), cfg, testSite(), nil)
	assert.Error(t, err)
}

func TestPipelineRegistersTasks(t *testing.T) {
	p, _ := newTestPipeline(t, afero.NewMemMapFs(), nil)
	for _, name := range []string{
		TaskClean, TaskStyles, TaskStylesOptimized, TaskScripts, TaskImages, TaskImagesOptimized,
		TaskFonts, TaskResources, TaskTemplates, TaskTemplatesOptimized, TaskBuild, TaskBuildOptimized,
	} {
		assert.True(t, p.Runner().Has(name), name)
	}
}
