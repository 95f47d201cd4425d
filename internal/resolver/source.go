package resolver

import (
	"path"
	"path/filepath"
	"strings"

	lerrors "github.com/landingkit/lander/internal/errors"
)

// TemplateSource identifies one page template beneath the template root.
type TemplateSource struct {
	// RelPath is the slash-separated path relative to the template root.
	RelPath  string
	Segments []string
	Site     string
	Language string
	// Alias is set when Language was forced by the alias table.
	Alias string
	// Defaulted is set when the path shape did not encode a language.
	Defaulted bool
}

// Dir returns the directory part of RelPath, "." for top-level templates.
func (s TemplateSource) Dir() string {
	return path.Dir(s.RelPath)
}

// AliasTable maps legacy site directory names to a fixed language.
type AliasTable map[string]string

// Lookup returns the first directory segment that names an alias. Segments
// match whole and case-insensitively, so "am-jp-old/index.hbs" is not an
// "am-jp" page. The final segment is the template file and never matches.
func (t AliasTable) Lookup(segments []string) (alias, lang string, ok bool) {
	if len(t) == 0 || len(segments) < 2 {
		return "", "", false
	}
	for _, seg := range segments[:len(segments)-1] {
		if lang, found := t[strings.ToLower(seg)]; found {
			return seg, lang, true
		}
	}
	return "", "", false
}

// SplitSource normalizes rel and splits it into path segments. Paths that
// escape the template root yield no segments.
func SplitSource(rel string) (string, []string) {
	clean := path.Clean(strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "." || clean == "" || clean == ".." || strings.HasPrefix(clean, "../") {
		return clean, nil
	}
	return clean, strings.Split(clean, "/")
}

// ParseSource derives {site, language} from the shape of rel. Three segments
// give site/lang/page, two give site/page with the default language. Any
// other shape is rejected when strict is set; otherwise it silently uses the
// default language and the first segment as site.
func ParseSource(rel string, opts Options) (TemplateSource, error) {
	clean, segments := SplitSource(rel)
	src := TemplateSource{RelPath: clean, Segments: segments}

	switch len(segments) {
	case 3:
		src.Site = segments[0]
		src.Language = segments[1]
	case 2:
		src.Site = segments[0]
		src.Language = opts.DefaultLanguage
		src.Defaulted = true
	default:
		if opts.StrictPaths || len(segments) == 0 {
			return src, lerrors.NewMalformedSourcePath(rel, len(segments))
		}
		if len(segments) > 1 {
			src.Site = segments[0]
		}
		src.Language = opts.DefaultLanguage
		src.Defaulted = true
	}

	if alias, lang, ok := opts.Aliases.Lookup(segments); ok {
		src.Alias = alias
		src.Language = lang
		src.Defaulted = false
	}

	return src, nil
}
