package server

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/logging"
)

const indexFile = "index.html"

// staticHandler serves files of fs. Directories are served through their
// index.html only; there are no listings.
type staticHandler struct {
	fs     afero.Fs
	inject bool
	logger logging.Logger
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)

	info, err := h.fs.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = path.Join(name, indexFile)
		if info, err = h.fs.Stat(name); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	f, err := h.fs.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	if h.inject && isHTML(name) {
		body, err := io.ReadAll(f)
		if err != nil {
			h.logger.Warn(r.Context(), err, "Failed to read page", "path", name)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		body = InjectLiveReload(body)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(body))
		return
	}

	http.ServeContent(w, r, name, info.ModTime(), f)
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

var bodyClose = []byte("</body>")

// InjectLiveReload adds the live-reload client script before the last
// closing body tag, or at the end of a page without one.
func InjectLiveReload(page []byte) []byte {
	tag := []byte(`<script src="` + LiveReloadScript + `"></script>`)

	i := bytes.LastIndex(bytes.ToLower(page), bodyClose)
	if i < 0 {
		return append(append([]byte(nil), page...), tag...)
	}

	out := make([]byte, 0, len(page)+len(tag))
	out = append(out, page[:i]...)
	out = append(out, tag...)
	out = append(out, page[i:]...)
	return out
}
