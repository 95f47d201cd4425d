package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"

	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/minifiers"
	"github.com/landingkit/lander/internal/scanner"
)

// inlineAttr marks a tag whose referenced file is embedded into the page.
const inlineAttr = "inline"

// AssetOptimizer post-processes rendered pages inside the dist tree:
// referenced scripts, stylesheets and SVG images marked with the inline
// attribute are embedded, parent references ("../") are stripped and the
// result is minified.
type AssetOptimizer struct {
	fs       afero.Fs
	distDir  string
	minifier minifiers.Client
	issues   *lerrors.ErrorCollector
}

// NewAssetOptimizer creates an optimizer for the pages below distDir.
// Missing inline sources are recorded on issues.
func NewAssetOptimizer(fs afero.Fs, distDir string, minifier minifiers.Client, issues *lerrors.ErrorCollector) *AssetOptimizer {
	if issues == nil {
		issues = lerrors.NewErrorCollector()
	}
	return &AssetOptimizer{fs: fs, distDir: distDir, minifier: minifier, issues: issues}
}

// OptimizePages rewrites every HTML page of the dist tree in place.
func (p *Pipeline) OptimizePages(ctx context.Context) error {
	files, err := p.scan(ctx, p.cfg.Paths.Dist, scanner.Options{Include: []string{"**/*.html"}})
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := afero.ReadFile(p.fs, f.Path)
		if err != nil {
			return lerrors.NewAssetError(f.Path, "read page", err)
		}
		out, err := p.optimizer.Optimize(f.RelPath, src)
		if err != nil {
			return err
		}
		if err := p.writeFile(f.Path, out); err != nil {
			return err
		}
	}

	p.logger.Info(ctx, "Pages optimized", "count", len(files))
	return nil
}

// Optimize returns the optimized form of the page at rel (relative to the
// dist root).
func (o *AssetOptimizer) Optimize(rel string, page []byte) ([]byte, error) {
	inlined, err := o.Inline(rel, page)
	if err != nil {
		return nil, err
	}
	stripped := StripParentRefs(inlined)
	out, err := o.minifier.Bytes(minifiers.MediaHTML, stripped)
	if err != nil {
		return nil, lerrors.NewAssetError(rel, "minify page", err)
	}
	return out, nil
}

// StripParentRefs removes every "../" from a page so that links written for
// the source tree resolve from the dist root.
func StripParentRefs(page []byte) []byte {
	return bytes.ReplaceAll(page, []byte("../"), nil)
}

// Inline embeds the sources of script, link and svg img tags carrying the
// inline attribute. Everything else is copied through unchanged.
func (o *AssetOptimizer) Inline(rel string, page []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(page))

	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return out.Bytes(), nil
			}
			return nil, lerrors.NewAssetError(rel, "tokenize page", z.Err())
		}

		raw := append([]byte(nil), z.Raw()...)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}

		tok := z.Token()
		replacement, ok := o.inlineTag(rel, tok)
		if !ok {
			out.Write(raw)
			continue
		}
		out.WriteString(replacement)
	}
}

func (o *AssetOptimizer) inlineTag(rel string, tok html.Token) (string, bool) {
	if !hasAttr(tok, inlineAttr) {
		return "", false
	}

	switch tok.Data {
	case "script":
		src, ok := attr(tok, "src")
		if !ok {
			return "", false
		}
		body, ok := o.load(rel, src, minifiers.MediaJS)
		if !ok {
			return "", false
		}
		// The source tag's own closing </script> follows in the stream.
		return "<script>" + strings.ReplaceAll(body, "</script", `<\/script`), true
	case "link":
		href, ok := attr(tok, "href")
		if !ok {
			return "", false
		}
		body, ok := o.load(rel, href, minifiers.MediaCSS)
		if !ok {
			return "", false
		}
		return "<style>" + body + "</style>", true
	case "img":
		src, ok := attr(tok, "src")
		if !ok || !strings.EqualFold(path.Ext(stripQuery(src)), ".svg") {
			return "", false
		}
		return o.load(rel, src, minifiers.MediaSVG)
	}
	return "", false
}

// load reads and minifies the file ref points to. A reference that cannot be
// read is recorded as an issue and the tag is kept.
func (o *AssetOptimizer) load(rel, ref, mediatype string) (string, bool) {
	name, ok := o.resolveRef(rel, ref)
	if !ok {
		o.issues.Add(lerrors.NewAssetError(rel, fmt.Sprintf("cannot inline %q", ref), nil))
		return "", false
	}

	data, err := afero.ReadFile(o.fs, name)
	if err != nil {
		o.issues.Add(lerrors.NewAssetError(rel, fmt.Sprintf("inline source %q", ref), err))
		return "", false
	}
	minified, err := o.minifier.Bytes(mediatype, data)
	if err != nil {
		o.issues.Add(lerrors.NewAssetError(rel, fmt.Sprintf("minify inline source %q", ref), err))
		return string(data), true
	}
	return string(minified), true
}

// resolveRef maps a reference to a file of the dist tree. Absolute
// references start at the dist root, others at the page's directory.
// Remote and data URLs are not resolvable.
func (o *AssetOptimizer) resolveRef(rel, ref string) (string, bool) {
	ref = stripQuery(ref)
	if ref == "" || strings.HasPrefix(ref, "//") || strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return "", false
	}

	var clean string
	if strings.HasPrefix(ref, "/") {
		clean = path.Clean(ref)
	} else {
		clean = path.Clean("/" + path.Join(path.Dir(rel), ref))
	}
	// Paths climbing above the root are clamped to it by Clean.
	return filepath.Join(o.distDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

func hasAttr(tok html.Token, key string) bool {
	_, ok := attr(tok, key)
	return ok
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
