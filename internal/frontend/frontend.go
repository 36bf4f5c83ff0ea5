// Package frontend serves the watched project with the live-update scripts
// spliced into its HTML pages, plus the server's own web UI.
package frontend

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	projectPrefix = "/project/"
	webPrefix     = "/web/"
	mainPage      = "main.html"
)

// embeddedUI is set by embed.go when the binary is built with -tags embed.
var embeddedUI http.Handler

// Embedded returns the web UI compiled into the binary, or nil.
func Embedded() http.Handler { return embeddedUI }

// Handler routes /project/, /web/ and the index page.
type Handler struct {
	root      string
	injectDir string
	webDir    string
	web       http.Handler
	mux       *http.ServeMux
}

// New builds the handler for files under root. When webDir does not exist, the embedded UI is used if the binary carries one.
func New(root, injectDir, webDir string) *Handler {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	h := &Handler{
		root:      root,
		injectDir: injectDir,
		webDir:    webDir,
	}

	if info, err := os.Stat(webDir); err == nil && info.IsDir() {
		h.web = http.FileServer(http.Dir(webDir))
	} else if embedded := Embedded(); embedded != nil {
		log.Printf("frontend: %s not found, serving embedded web UI", webDir)
		h.web = embedded
	}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc(projectPrefix, h.serveProject)
	if h.web != nil {
		h.mux.Handle(webPrefix, http.StripPrefix(strings.TrimSuffix(webPrefix, "/"), h.web))
	}
	h.mux.HandleFunc("/", h.serveIndex)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if data, err := os.ReadFile(filepath.Join(h.webDir, mainPage)); err == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(data)
		return
	}
	if h.web != nil {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + mainPage
		h.web.ServeHTTP(w, r2)
		return
	}
	http.NotFound(w, r)
}

func (h *Handler) serveProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	full, ok := h.resolve(strings.TrimPrefix(r.URL.Path, projectPrefix))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	if isHTML(full) {
		h.serveHTML(w, r, full)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// resolve maps a request path onto a regular file under the root. Directories
// resolve to their index.html. Anything that lands outside the root, including
// through a symlink, is refused.
func (h *Handler) resolve(rel string) (string, bool) {
	clean := path.Clean("/" + rel)
	full := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := os.Stat(full)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		full = filepath.Join(full, "index.html")
		if info, err = os.Stat(full); err != nil {
			return "", false
		}
	}
	if !info.Mode().IsRegular() {
		return "", false
	}

	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", false
	}
	if resolved != h.root && !strings.HasPrefix(resolved, h.root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (h *Handler) serveHTML(w http.ResponseWriter, r *http.Request, full string) {
	page, err := os.ReadFile(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	body := Inject(page, h.scripts())
	http.ServeContent(w, r, filepath.Base(full), time.Time{}, bytes.NewReader(body))
}

func isHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Inject inlines scripts before the last </body> of page, or at the end when
// the page has none.
func Inject(page []byte, scripts [][]byte) []byte {
	if len(scripts) == 0 {
		return page
	}

	var tags bytes.Buffer
	for _, s := range scripts {
		tags.WriteString("<script>")
		tags.Write(s)
		tags.WriteString("</script>")
	}

	idx := lastIndexFold(page, closingBody)
	if idx < 0 {
		return append(append([]byte{}, page...), tags.Bytes()...)
	}

	out := make([]byte, 0, len(page)+tags.Len())
	out = append(out, page[:idx]...)
	out = append(out, tags.Bytes()...)
	out = append(out, page[idx:]...)
	return out
}

var closingBody = []byte("</body>")

func lastIndexFold(s, sep []byte) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}
