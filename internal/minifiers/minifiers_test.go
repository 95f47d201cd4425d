package minifiers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaTypeFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main.min.css", MediaCSS},
		{"app.JS", MediaJS},
		{"logo.svg", MediaSVG},
		{"ub/promo.html", MediaHTML},
		{"photo.png", ""},
		{"README", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaTypeFor(tt.name))
		})
	}
}

func TestNew(t *testing.T) {
	m := New(DefaultConfig())

	for _, test := range []struct {
		tp                string
		rawString         string
		expectedMinString string
	}{
		{MediaCSS, " body { color: blue; }  ", "body{color:blue}"},
		{MediaJSON, `{ "a" : [ 1, 2 ] }`, `{"a":[1,2]}`},
		{"application/ld+json", `{ "b" : true }`, `{"b":true}`},
	} {
		t.Run(test.tp, func(t *testing.T) {
			got, err := m.String(test.tp, test.rawString)
			require.NoError(t, err)
			assert.Equal(t, test.expectedMinString, got)
		})
	}
}

func TestScriptAndVectorMinify(t *testing.T) {
	m := New(DefaultConfig())

	rawJS := "function  hello( name ) {\n  // greet\n  return \"Hello, \" + name;\n}\nhello(\"World\");\n"
	for _, tp := range []string{MediaJS, "text/javascript"} {
		got, err := m.String(tp, rawJS)
		require.NoError(t, err)
		assert.NotContains(t, got, "greet")
		assert.Contains(t, got, `"Hello, "`)
		assert.Less(t, len(got), len(rawJS))
	}

	rawSVG := `<svg xmlns="http://www.w3.org/2000/svg">  <!-- c -->  <rect width="10" height="10"/>  </svg>`
	got, err := m.String(MediaSVG, rawSVG)
	require.NoError(t, err)
	assert.NotContains(t, got, "<!--")
	assert.Contains(t, got, "<rect")
	assert.Less(t, len(got), len(rawSVG))
}

func TestHTMLMinifyDropsCommentsAndCollapsesWhitespace(t *testing.T) {
	m := New(DefaultConfig())

	src := "<html>\n  <body>\n    <!-- build marker -->\n    <p>  Hello   world  </p>\n  </body>\n</html>\n"
	got, err := m.String(MediaHTML, src)
	require.NoError(t, err)

	assert.NotContains(t, got, "build marker")
	assert.Contains(t, got, "<p>Hello world</p>")
	assert.False(t, strings.Contains(got, "\n  "))
}

func TestDisabledMinifierCopies(t *testing.T) {
	conf := DefaultConfig()
	conf.DisableCSS = true
	m := New(conf)

	got, err := m.String(MediaCSS, " body { color: blue; } ")
	require.NoError(t, err)
	assert.Equal(t, " body { color: blue; } ", got)
}

func TestUnsupportedMediaType(t *testing.T) {
	m := New(DefaultConfig())

	assert.True(t, m.Supports(MediaHTML))
	assert.False(t, m.Supports("image/png"))

	_, err := m.Bytes("image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.Error(t, err)
}
