// Package minifiers maps media types to tdewolff minifiers.
package minifiers

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
)

// Media types handled by the client.
const (
	MediaCSS  = "text/css"
	MediaJS   = "application/javascript"
	MediaJSON = "application/json"
	MediaSVG  = "image/svg+xml"
	MediaXML  = "application/xml"
	MediaHTML = "text/html"
)

var extMediaTypes = map[string]string{
	".css":  MediaCSS,
	".js":   MediaJS,
	".mjs":  MediaJS,
	".json": MediaJSON,
	".svg":  MediaSVG,
	".xml":  MediaXML,
	".html": MediaHTML,
	".htm":  MediaHTML,
}

// MediaTypeFor returns the media type of a file name, or "" when the
// extension is not minifiable.
func MediaTypeFor(name string) string {
	return extMediaTypes[strings.ToLower(path.Ext(name))]
}

// Client wraps a minifier.
type Client struct {
	m *minify.M
}

// New creates a Client with one minifier per supported media type.
func New(conf Config) Client {
	m := minify.New()

	m.Add(MediaCSS, getMinifier(conf, "css"))

	m.Add(MediaJS, getMinifier(conf, "js"))
	m.AddRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), getMinifier(conf, "js"))

	m.Add(MediaJSON, getMinifier(conf, "json"))
	m.AddRegexp(regexp.MustCompile(`^(application|text)/(x-|(ld|manifest)\+)?json$`), getMinifier(conf, "json"))

	m.Add(MediaSVG, getMinifier(conf, "svg"))

	m.Add(MediaXML, getMinifier(conf, "xml"))
	m.Add("text/xml", getMinifier(conf, "xml"))

	m.Add(MediaHTML, getMinifier(conf, "html"))

	return Client{m: m}
}

// getMinifier returns the minifier for the type suffix s, given the config c.
func getMinifier(c Config, s string) minify.Minifier {
	switch {
	case s == "css" && !c.DisableCSS:
		return &c.Tdewolff.CSS
	case s == "js" && !c.DisableJS:
		return &c.Tdewolff.JS
	case s == "json" && !c.DisableJSON:
		return &c.Tdewolff.JSON
	case s == "svg" && !c.DisableSVG:
		return &c.Tdewolff.SVG
	case s == "xml" && !c.DisableXML:
		return &c.Tdewolff.XML
	case s == "html" && !c.DisableHTML:
		return &c.Tdewolff.HTML
	default:
		return noopMinifier{}
	}
}

// noopMinifier copies its input. It stands in for disabled media types so
// that a lookup never fails for a known type.
type noopMinifier struct{}

// Minify copies r into w without transformation.
func (m noopMinifier) Minify(_ *minify.M, w io.Writer, r io.Reader, _ map[string]string) error {
	_, err := io.Copy(w, r)
	return err
}

// Supports reports whether mediatype has a registered minifier.
func (c Client) Supports(mediatype string) bool {
	_, _, min := c.m.Match(mediatype)
	return min != nil
}

// Minify minifies src of the given media type into dst.
func (c Client) Minify(mediatype string, dst io.Writer, src io.Reader) error {
	if err := c.m.Minify(mediatype, dst, src); err != nil {
		return fmt.Errorf("minify %s: %w", mediatype, err)
	}
	return nil
}

// Bytes minifies b.
func (c Client) Bytes(mediatype string, b []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(b))
	if err := c.Minify(mediatype, &buf, bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String minifies s.
func (c Client) String(mediatype, s string) (string, error) {
	b, err := c.Bytes(mediatype, []byte(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
