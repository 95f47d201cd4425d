package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteYAML = `htmlFileName: promo
domain:
  ub: https://ubackup.com
cdn_url:
  ub: https://cdn.ubackup.com
gtm_code:
  ub: GTM-UB123
ftp:
  host: ftp.example.com
  user: deploy
  root: /public_html
`

var projectTree = map[string]string{
	"data.yml":                      siteYAML,
	"src/templates/ub/de/index.hbs": `<title>{{title}}</title><link rel="canonical" href="{{meta.canonical}}">{{> footer}}`,
	"src/templates/ub/index.hbs":    `<title>{{title}}</title><p>{{language}}</p>`,
	"src/partials/footer.hbs":       `<footer>{{gtm_code}}</footer>`,
	"src/yml/ub/de.yml":             "title: Angebot\nmeta:\n  description: Sichern\n",
	"src/yml/ub/en.yml":             "title: Offer\n",
	"src/less/main.less":            "body { color: red; }\n",
	"src/js/app.js":                 "var answer = 40 + 2;\n",
}

func newProject(t *testing.T, extra map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, files := range []map[string]string{projectTree, extra} {
		for name, content := range files {
			require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
		}
	}
	return fs
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command against fs and returns its standard output.
func execute(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()

	oldFs := appFs
	appFs = fs
	viper.Reset()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		appFs = oldFs
		viper.Reset()
		resetFlags(rootCmd)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func read(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}

func TestBuildCommand(t *testing.T) {
	fs := newProject(t, nil)

	out, err := execute(t, fs, "build")
	require.NoError(t, err)

	assert.Equal(t,
		`<title>Angebot</title><link rel="canonical" href="https://ubackup.com/de/landing/promo.html"><footer>GTM-UB123</footer>`,
		read(t, fs, "dist/ub/de/promo.html"))
	assert.Equal(t, "<title>Offer</title><p>en</p>", read(t, fs, "dist/ub/promo.html"))
	assert.Equal(t, "body { color: red; }\n", read(t, fs, "dist/css/main.min.css"))
	assert.Contains(t, out, "2 pages rendered, 0 pages failed")
}

func TestBuildOptimizedCommand(t *testing.T) {
	fs := newProject(t, nil)

	_, err := execute(t, fs, "build", "--optimized")
	require.NoError(t, err)

	assert.Equal(t, "body{color:red}", read(t, fs, "dist/css/main.min.css"))
	assert.NotContains(t, read(t, fs, "dist/ub/de/promo.html"), "\n")
}

func TestBuildReportsIssues(t *testing.T) {
	fs := newProject(t, map[string]string{
		"src/templates/ub/fr/index.hbs": "<p>{{title}}</p>",
	})

	out, err := execute(t, fs, "build")
	require.NoError(t, err, "a missing locale file does not fail the build")
	assert.Contains(t, out, "src/yml/ub/fr.yml")
	assert.Equal(t, "<p></p>", read(t, fs, "dist/ub/fr/promo.html"))

	_, err = execute(t, fs, "build", "--fail-on-error")
	require.NoError(t, err, "missing locale files are warnings")

	fs = newProject(t, map[string]string{
		"src/templates/ub/it/index.hbs": "<p>{{title}}</p>",
		"src/yml/ub/it.yml":             "title: [unclosed\n",
	})
	_, err = execute(t, fs, "build", "--fail-on-error")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	fs := newProject(t, nil)

	_, err := execute(t, fs, "run", "styles")
	require.NoError(t, err)
	ok, _ := afero.Exists(fs, "dist/css/main.min.css")
	assert.True(t, ok)
	ok, _ = afero.Exists(fs, "dist/ub/promo.html")
	assert.False(t, ok, "only the named task runs")

	_, err = execute(t, fs, "run", "lint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown task "lint"`)
}

func TestTasksCommand(t *testing.T) {
	out, err := execute(t, newProject(t, nil), "tasks")
	require.NoError(t, err)

	for _, task := range []string{"build", "build:optimized", "clean", "templates", "templates:optimized", "styles:optimized"} {
		assert.Contains(t, out, task+" ")
	}
}

func TestCleanCommand(t *testing.T) {
	fs := newProject(t, map[string]string{"dist/old.html": "stale"})

	_, err := execute(t, fs, "clean")
	require.NoError(t, err)

	ok, _ := afero.DirExists(fs, "dist")
	assert.False(t, ok)
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, newProject(t, nil), "resolve", "ub/de/index.hbs")
	require.NoError(t, err)

	assert.Contains(t, out, "site: ub\n")
	assert.Contains(t, out, "data_file: src/yml/ub/de.yml\n")
	assert.Contains(t, out, "canonical: https://ubackup.com/de/landing/promo.html")
	assert.Contains(t, out, "gtm_code: GTM-UB123")
	assert.NotContains(t, out, "issues:")
}

func TestResolveCommandIssues(t *testing.T) {
	out, err := execute(t, newProject(t, nil), "resolve", "ub/fr/index.hbs")
	require.NoError(t, err)

	assert.Contains(t, out, "language: fr\n")
	assert.Contains(t, out, "issues:")
	assert.Contains(t, out, "src/yml/ub/fr.yml")

	_, err = execute(t, newProject(t, nil), "resolve", "a/b/c/d/index.hbs")
	assert.Error(t, err, "paths deeper than site/lang are rejected")
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("LANDER_RESOLVER_DEFAULT_LANGUAGE", "de")

	out, err := execute(t, newProject(t, nil), "resolve", "ub/index.hbs")
	require.NoError(t, err)
	assert.Contains(t, out, "data_file: src/yml/ub/de.yml\n")
}

func TestConfigFile(t *testing.T) {
	fs := newProject(t, map[string]string{
		"sites.yml":  siteYAML,
		"lander.yml": "site_config: sites.yml\nresolver:\n  data_layout: flat\n",
	})

	out, err := execute(t, fs, "--config", "lander.yml", "resolve", "ub/de/index.hbs")
	require.NoError(t, err)
	assert.Contains(t, out, "data_file: src/yml/ub-de.yml\n")

	_, err = execute(t, fs, "--config", "missing.yml", "resolve", "ub/de/index.hbs")
	assert.Error(t, err, "an explicitly named file must exist")
}

func TestConfigValidate(t *testing.T) {
	out, err := execute(t, newProject(t, nil), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Site configuration data.yml is valid (1 sites)")

	fs := newProject(t, map[string]string{
		"data.yml": "htmlFileName: promo\ndomain:\n  ub: https://ubackup.com\n",
	})
	out, err = execute(t, fs, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "warning: site ub has no cdn_url")

	_, err = execute(t, fs, "config", "validate", "--strict")
	assert.Error(t, err)

	fs = newProject(t, map[string]string{"data.yml": "htmlFileName: promo.html\ndomain:\n  ub: https://ubackup.com\n"})
	_, err = execute(t, fs, "config", "validate")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	out, err := execute(t, newProject(t, nil), "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"default_language": "en"`)

	_, err = execute(t, newProject(t, nil), "config", "show", "--format", "toml")
	assert.Error(t, err)
}

func TestDeployDryRun(t *testing.T) {
	fs := newProject(t, map[string]string{
		"lander.yml": "deploy:\n  targets:\n    - local: dist/ub\n      remote: /ub\n",
	})

	out, err := execute(t, fs, "--config", "lander.yml", "deploy", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "dist/ub/de/promo.html -> /public_html/ub/de/promo.html")
	assert.Contains(t, out, "dist/ub/promo.html -> /public_html/ub/promo.html")
	assert.Contains(t, out, "2 files")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, afero.NewMemMapFs(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lander ")

	out, err = execute(t, afero.NewMemMapFs(), "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}
