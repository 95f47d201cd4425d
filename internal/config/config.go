// Package config provides configuration management for lander.
//
// Two documents are involved. The project configuration (lander.yml) is
// loaded through Viper, so every key can be overridden by a LANDER_ prefixed
// environment variable or a command-line flag. The site configuration
// (data.yml) describes the marketing sites themselves and is parsed with
// yaml.v3 into a typed, validated SiteConfig. Both are read once per process
// and treated as read-only afterwards.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/landingkit/lander/internal/logging"
	"github.com/landingkit/lander/internal/validation"
)

// Canonical injection modes.
const (
	CanonicalRequireMeta = "require-meta"
	CanonicalCreateMeta  = "create-meta"
)

// Data file layouts.
const (
	LayoutNested = "nested"
	LayoutFlat   = "flat"
)

// Deploy methods.
const (
	DeployFTP   = "ftp"
	DeployRsync = "rsync"
)

type Config struct {
	SiteConfig string          `mapstructure:"site_config"`
	Paths      PathsConfig     `mapstructure:"paths"`
	Resolver   ResolverConfig  `mapstructure:"resolver"`
	Templates  TemplatesConfig `mapstructure:"templates"`
	Styles     StylesConfig    `mapstructure:"styles"`
	Server     ServerConfig    `mapstructure:"server"`
	Watch      WatchConfig     `mapstructure:"watch"`
	Deploy     DeployConfig    `mapstructure:"deploy"`
	LogLevel   string          `mapstructure:"log_level"`
	LogFormat  string          `mapstructure:"log_format"`
}

type PathsConfig struct {
	Src       string `mapstructure:"src"`
	Dist      string `mapstructure:"dist"`
	Templates string `mapstructure:"templates"`
	Partials  string `mapstructure:"partials"`
	Data      string `mapstructure:"data"`
	Styles    string `mapstructure:"styles"`
	Scripts   string `mapstructure:"scripts"`
	Images    string `mapstructure:"images"`
	Fonts     string `mapstructure:"fonts"`
	Resources string `mapstructure:"resources"`
}

type ResolverConfig struct {
	DefaultLanguage string            `mapstructure:"default_language"`
	StrictPaths     bool              `mapstructure:"strict_paths"`
	Canonical       string            `mapstructure:"canonical"`
	DataLayout      string            `mapstructure:"data_layout"`
	DataExt         string            `mapstructure:"data_ext"`
	LandingSegment  string            `mapstructure:"landing_segment"`
	Aliases         map[string]string `mapstructure:"aliases"`
}

type TemplatesConfig struct {
	Pattern        string `mapstructure:"pattern"`
	IgnorePartials bool   `mapstructure:"ignore_partials"`
	Workers        int    `mapstructure:"workers"`
	FailOnError    bool   `mapstructure:"fail_on_error"`
}

type StylesConfig struct {
	Compiler string `mapstructure:"compiler"`
	Pattern  string `mapstructure:"pattern"`
	Suffix   string `mapstructure:"suffix"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	LiveReload bool   `mapstructure:"live_reload"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type DeployConfig struct {
	Method           string         `mapstructure:"method"`
	Targets          []DeployTarget `mapstructure:"targets"`
	RsyncDestination string         `mapstructure:"rsync_destination"`
	Timeout          time.Duration  `mapstructure:"timeout"`
}

// DeployTarget maps one local directory to its remote location.
type DeployTarget struct {
	Local  string `mapstructure:"local"`
	Remote string `mapstructure:"remote"`
}

// DefaultAliases is the legacy site-alias table. Templates under one of these
// directories always use the mapped language.
func DefaultAliases() map[string]string {
	return map[string]string{
		"am-de": "de",
		"am-fr": "fr",
		"am-jp": "jp",
	}
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("site_config", "data.yml")

	v.SetDefault("paths.src", "src")
	v.SetDefault("paths.dist", "dist")
	v.SetDefault("paths.templates", "src/templates")
	v.SetDefault("paths.partials", "src/partials")
	v.SetDefault("paths.data", "src/yml")
	v.SetDefault("paths.styles", "src/less")
	v.SetDefault("paths.scripts", "src/js")
	v.SetDefault("paths.images", "src/img")
	v.SetDefault("paths.fonts", "src/font")
	v.SetDefault("paths.resources", "src/resources")

	v.SetDefault("resolver.default_language", "en")
	v.SetDefault("resolver.strict_paths", true)
	v.SetDefault("resolver.canonical", CanonicalRequireMeta)
	v.SetDefault("resolver.data_layout", LayoutNested)
	v.SetDefault("resolver.data_ext", ".yml")
	v.SetDefault("resolver.landing_segment", "landing")
	aliases := make(map[string]interface{})
	for alias, lang := range DefaultAliases() {
		aliases[alias] = lang
	}
	v.SetDefault("resolver.aliases", aliases)

	v.SetDefault("templates.pattern", "**/*.hbs")
	v.SetDefault("templates.ignore_partials", true)
	v.SetDefault("templates.workers", 4)
	v.SetDefault("templates.fail_on_error", false)

	v.SetDefault("styles.compiler", "")
	v.SetDefault("styles.pattern", "**/*.less")
	v.SetDefault("styles.suffix", ".min")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.live_reload", true)

	v.SetDefault("watch.debounce", "300ms")

	v.SetDefault("deploy.method", DeployFTP)
	v.SetDefault("deploy.timeout", "30s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the project configuration from v, applying defaults for every
// key that was not set, and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Viper lowercases map keys; alias values are normalized the same way.
	aliases := make(map[string]string, len(config.Resolver.Aliases))
	for alias, lang := range config.Resolver.Aliases {
		aliases[strings.ToLower(alias)] = strings.TrimSpace(lang)
	}
	config.Resolver.Aliases = aliases

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by an empty lander.yml.
func Default() *Config {
	cfg, err := Load(viper.New())
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Level returns the parsed log level.
func (c *Config) Level() logging.LogLevel {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// Addr returns the listen address of the development server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validation.Path(config.SiteConfig); err != nil {
		return fmt.Errorf("site_config: %w", err)
	}

	if err := validatePathsConfig(&config.Paths); err != nil {
		return fmt.Errorf("paths config: %w", err)
	}

	if err := validateResolverConfig(&config.Resolver); err != nil {
		return fmt.Errorf("resolver config: %w", err)
	}

	if err := validateTemplatesConfig(&config.Templates); err != nil {
		return fmt.Errorf("templates config: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Watch.Debounce <= 0 {
		return fmt.Errorf("watch config: debounce must be positive, got %s", config.Watch.Debounce)
	}

	if err := validateDeployConfig(&config.Deploy); err != nil {
		return fmt.Errorf("deploy config: %w", err)
	}

	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}
	if config.LogFormat != "text" && config.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", config.LogFormat)
	}

	return nil
}

func validatePathsConfig(p *PathsConfig) error {
	fields := []struct {
		name, value string
	}{
		{"src", p.Src},
		{"dist", p.Dist},
		{"templates", p.Templates},
		{"partials", p.Partials},
		{"data", p.Data},
		{"styles", p.Styles},
		{"scripts", p.Scripts},
		{"images", p.Images},
		{"fonts", p.Fonts},
		{"resources", p.Resources},
	}
	for _, f := range fields {
		if err := validation.Path(f.value); err != nil {
			return fmt.Errorf("invalid %s path '%s': %w", f.name, f.value, err)
		}
	}

	if filepath.Clean(p.Dist) == "." {
		return fmt.Errorf("dist cannot be the project root")
	}

	return nil
}

func validateResolverConfig(r *ResolverConfig) error {
	if r.DefaultLanguage == "" || strings.ContainsAny(r.DefaultLanguage, `/\`) {
		return fmt.Errorf("default_language %q is not a language code", r.DefaultLanguage)
	}

	switch r.Canonical {
	case CanonicalRequireMeta, CanonicalCreateMeta:
	default:
		return fmt.Errorf("canonical must be %s or %s, got %q", CanonicalRequireMeta, CanonicalCreateMeta, r.Canonical)
	}

	switch r.DataLayout {
	case LayoutNested, LayoutFlat:
	default:
		return fmt.Errorf("data_layout must be %s or %s, got %q", LayoutNested, LayoutFlat, r.DataLayout)
	}

	if !strings.HasPrefix(r.DataExt, ".") || len(r.DataExt) < 2 {
		return fmt.Errorf("data_ext must start with a dot, got %q", r.DataExt)
	}

	if strings.Trim(r.LandingSegment, "/") == "" || strings.Contains(strings.Trim(r.LandingSegment, "/"), "/") {
		return fmt.Errorf("landing_segment must be a single path segment, got %q", r.LandingSegment)
	}

	for alias, lang := range r.Aliases {
		if alias == "" || strings.ContainsAny(alias, `/\`) {
			return fmt.Errorf("alias %q must be a single directory name", alias)
		}
		if lang == "" {
			return fmt.Errorf("alias %q maps to an empty language", alias)
		}
	}

	return nil
}

func validateTemplatesConfig(t *TemplatesConfig) error {
	if t.Pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if t.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", t.Workers)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

func validateDeployConfig(d *DeployConfig) error {
	switch d.Method {
	case DeployFTP, DeployRsync:
	default:
		return fmt.Errorf("method must be %s or %s, got %q", DeployFTP, DeployRsync, d.Method)
	}

	for i, target := range d.Targets {
		if err := validation.Path(target.Local); err != nil {
			return fmt.Errorf("target %d local path: %w", i, err)
		}
		if strings.Contains(target.Remote, "..") {
			return fmt.Errorf("target %d remote path contains traversal: %s", i, target.Remote)
		}
	}

	if d.Method == DeployRsync && d.RsyncDestination != "" {
		if err := validation.Destination(d.RsyncDestination); err != nil {
			return fmt.Errorf("rsync_destination: %w", err)
		}
	}

	if d.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", d.Timeout)
	}

	return nil
}
