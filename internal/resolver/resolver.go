// Package resolver maps a page template to the data it is rendered with.
//
// A template's location beneath the template root encodes its site and
// language (site/lang/page.hbs or site/page.hbs). The resolver turns that
// location into a locale data file path, loads the file, and injects the
// fields every page expects: language, meta.canonical, cdn_url and gtm_code.
//
// Failures that concern a single page (a missing or malformed locale file, a
// site without a cdn_url) never abort the batch. They are logged, recorded on
// the Result, and an empty or partial mapping is used instead.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/landingkit/lander/internal/config"
	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/logging"
)

// Keys injected into every RenderContext.
const (
	KeyLanguage  = "language"
	KeyMeta      = "meta"
	KeyCanonical = "canonical"
	KeyCDNURL    = config.KeyCDNURL
	KeyGTMCode   = config.KeyGTMCode
)

// RenderContext is the data handed to the template engine for one page.
type RenderContext map[string]interface{}

// Meta returns the meta sub-mapping, if present.
func (c RenderContext) Meta() (map[string]interface{}, bool) {
	m, ok := c[KeyMeta].(map[string]interface{})
	return m, ok
}

// Canonical returns meta.canonical, if present.
func (c RenderContext) Canonical() (string, bool) {
	meta, ok := c.Meta()
	if !ok {
		return "", false
	}
	s, ok := meta[KeyCanonical].(string)
	return s, ok
}

// Options control path interpretation and injection.
type Options struct {
	DataDir         string
	DefaultLanguage string
	StrictPaths     bool
	Canonical       string
	DataLayout      string
	DataExt         string
	LandingSegment  string
	Aliases         AliasTable
}

// DefaultOptions mirror the defaults of the project configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig builds resolver options from the project configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	aliases := make(AliasTable, len(cfg.Resolver.Aliases))
	for alias, lang := range cfg.Resolver.Aliases {
		aliases[strings.ToLower(alias)] = lang
	}
	return Options{
		DataDir:         cfg.Paths.Data,
		DefaultLanguage: cfg.Resolver.DefaultLanguage,
		StrictPaths:     cfg.Resolver.StrictPaths,
		Canonical:       cfg.Resolver.Canonical,
		DataLayout:      cfg.Resolver.DataLayout,
		DataExt:         cfg.Resolver.DataExt,
		LandingSegment:  cfg.Resolver.LandingSegment,
		Aliases:         aliases,
	}
}

// Result is the outcome of resolving one template.
type Result struct {
	Source   TemplateSource
	DataFile string
	Context  RenderContext
	// Issues holds the recovered problems met while resolving.
	Issues []*lerrors.PipelineError
}

// Resolver resolves templates against one SiteConfig. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	fs     afero.Fs
	site   *config.SiteConfig
	opts   Options
	logger logging.Logger
}

// New creates a Resolver. The site configuration must already be loaded.
func New(fs afero.Fs, site *config.SiteConfig, opts Options, logger logging.Logger) (*Resolver, error) {
	if fs == nil {
		return nil, fmt.Errorf("resolver: filesystem is required")
	}
	if site == nil {
		return nil, fmt.Errorf("resolver: site configuration is required")
	}
	if opts.DefaultLanguage == "" {
		return nil, fmt.Errorf("resolver: default language is required")
	}
	if opts.DataExt == "" {
		opts.DataExt = ".yml"
	}
	if opts.LandingSegment == "" {
		opts.LandingSegment = "landing"
	}
	return &Resolver{
		fs:     fs,
		site:   site,
		opts:   opts,
		logger: logging.OrNop(logger).WithComponent("resolver"),
	}, nil
}

// Options returns the options in effect.
func (r *Resolver) Options() Options {
	return r.opts
}

// Resolve builds the RenderContext for the template at relPath. The returned
// error is non-nil only when the path shape is rejected or ctx is done; data
// availability problems are reported through Result.Issues.
func (r *Resolver) Resolve(ctx context.Context, relPath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := ParseSource(relPath, r.opts)
	if err != nil {
		r.logger.Error(ctx, err, "Rejected template path", "path", relPath)
		return nil, err
	}

	res := &Result{
		Source:   src,
		DataFile: r.DataPath(src),
	}

	data, issue := r.loadData(ctx, res.DataFile)
	if issue != nil {
		res.Issues = append(res.Issues, issue)
	}

	res.Issues = append(res.Issues, r.inject(ctx, src, data)...)
	res.Context = data

	r.logger.Debug(ctx, "Resolved template data",
		"path", src.RelPath,
		"site", src.Site,
		"language", src.Language,
		"data_file", res.DataFile,
		"keys", len(data),
	)

	return res, nil
}

// DataKey returns the {site}/{lang} key of src.
func DataKey(src TemplateSource) string {
	if src.Site == "" {
		return src.Language
	}
	return src.Site + "/" + src.Language
}

// DataPath returns the locale data file for src under the configured layout.
func (r *Resolver) DataPath(src TemplateSource) string {
	var name string
	switch {
	case src.Site == "":
		name = src.Language + r.opts.DataExt
	case r.opts.DataLayout == config.LayoutFlat:
		name = src.Site + "-" + src.Language + r.opts.DataExt
	default:
		name = filepath.Join(src.Site, src.Language+r.opts.DataExt)
	}
	return filepath.Join(r.opts.DataDir, name)
}

func (r *Resolver) loadData(ctx context.Context, path string) (RenderContext, *lerrors.PipelineError) {
	raw, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			issue := lerrors.NewMissingDataFile(path, err)
			r.logger.Warn(ctx, issue, "Locale data file not found, using empty data", "path", path)
			return RenderContext{}, issue
		}
		issue := lerrors.NewMalformedDataFile(path, err)
		r.logger.Error(ctx, issue, "Cannot read locale data file, using empty data", "path", path)
		return RenderContext{}, issue
	}

	data, err := ParseData(raw)
	if err != nil {
		issue := lerrors.NewMalformedDataFile(path, err)
		r.logger.Error(ctx, issue, "Malformed locale data file, using empty data", "path", path)
		return RenderContext{}, issue
	}

	return data, nil
}

// ParseData decodes a locale data document. An empty document is an empty
// mapping; a document whose root is not a mapping is an error.
func ParseData(raw []byte) (RenderContext, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return RenderContext{}, nil
	}

	root, ok := normalize(doc).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("document root is a %T, want a mapping", doc)
	}
	return RenderContext(root), nil
}

// normalize converts every nested mapping to map[string]interface{} so that
// lookups by string key work at any depth.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[interface{}]interface{}:
		m := cast.ToStringMap(val)
		for k, item := range m {
			m[k] = normalize(item)
		}
		return m
	case []interface{}:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}

func (r *Resolver) inject(ctx context.Context, src TemplateSource, data RenderContext) []*lerrors.PipelineError {
	var issues []*lerrors.PipelineError

	data[KeyLanguage] = src.Language

	if issue := r.injectCanonical(ctx, src, data); issue != nil {
		issues = append(issues, issue)
	}

	if cdn, ok := r.site.CDNFor(src.Site); ok {
		data[KeyCDNURL] = cdn
	} else {
		issues = append(issues, r.missingKey(ctx, src, KeyCDNURL))
	}

	if gtm, ok := r.site.GTMFor(src.Site); ok {
		data[KeyGTMCode] = gtm
	} else {
		issues = append(issues, r.missingKey(ctx, src, KeyGTMCode))
	}

	return issues
}

func (r *Resolver) injectCanonical(ctx context.Context, src TemplateSource, data RenderContext) *lerrors.PipelineError {
	meta, present := data[KeyMeta]
	var metaMap map[string]interface{}

	switch {
	case !present:
		if r.opts.Canonical != config.CanonicalCreateMeta {
			r.logger.Debug(ctx, "No meta mapping, canonical URL not injected", "path", src.RelPath)
			return nil
		}
		metaMap = make(map[string]interface{})
	default:
		m, ok := meta.(map[string]interface{})
		if !ok {
			if meta == nil && r.opts.Canonical == config.CanonicalCreateMeta {
				m = make(map[string]interface{})
			} else {
				r.logger.Warn(ctx, nil, "meta is not a mapping, canonical URL not injected",
					"path", src.RelPath, "type", fmt.Sprintf("%T", meta))
				return nil
			}
		}
		metaMap = m
	}

	domain, ok := r.site.DomainFor(src.Site)
	if !ok {
		return r.missingKey(ctx, src, config.KeyDomain)
	}

	metaMap[KeyCanonical] = CanonicalURL(domain, src.Language, r.opts.DefaultLanguage, r.opts.LandingSegment, r.site.HTMLFileName)
	data[KeyMeta] = metaMap
	return nil
}

func (r *Resolver) missingKey(ctx context.Context, src TemplateSource, key string) *lerrors.PipelineError {
	issue := lerrors.NewMissingConfigKey(src.Site, key)
	issue.Path = src.RelPath
	r.logger.Warn(ctx, issue, "Site configuration key missing, field omitted",
		"site", src.Site, "key", key, "path", src.RelPath)
	return issue
}

// CanonicalURL joins the domain root, the language segment (omitted for the
// default language), the landing segment and the page file name:
//
//	https://ubackup.com + de + landing + promo -> https://ubackup.com/de/landing/promo.html
func CanonicalURL(domain, lang, defaultLang, landing, htmlFileName string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(domain, "/"))
	if lang != "" && lang != defaultLang {
		b.WriteString("/")
		b.WriteString(lang)
	}
	b.WriteString("/")
	b.WriteString(strings.Trim(landing, "/"))
	b.WriteString("/")
	b.WriteString(htmlFileName)
	b.WriteString(".html")
	return b.String()
}
