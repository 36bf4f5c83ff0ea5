package frontend

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func get(t *testing.T, h http.Handler, target string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

// fixture lays out a project root, an inject dir and a web dir under one
// temp dir.
func fixture(t *testing.T) (root, inject, web string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "project")
	inject = filepath.Join(base, "inject_scripts")
	web = filepath.Join(base, "web")

	writeFile(t, filepath.Join(root, "index.html"), "<html><body><h1>hi</h1></body></html>")
	writeFile(t, filepath.Join(root, "src", "app.css"), "body{}")
	writeFile(t, filepath.Join(root, "docs", "index.html"), "<p>docs</p>")
	writeFile(t, filepath.Join(inject, "b.js"), "second()")
	writeFile(t, filepath.Join(inject, "a.js"), "first()")
	writeFile(t, filepath.Join(inject, "notes.txt"), "skip me")
	writeFile(t, filepath.Join(web, "main.html"), "<title>ui</title>")
	writeFile(t, filepath.Join(web, "app.js"), "ui()")
	return root, inject, web
}

func TestInject(t *testing.T) {
	scripts := [][]byte{[]byte("a()"), []byte("b()")}

	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "before closing body",
			page: "<body><p>x</p></body></html>",
			want: "<body><p>x</p><script>a()</script><script>b()</script></body></html>",
		},
		{
			name: "uppercase tag",
			page: "<BODY></BODY>",
			want: "<BODY><script>a()</script><script>b()</script></BODY>",
		},
		{
			name: "last closing body wins",
			page: "<pre></body></pre></body>",
			want: "<pre></body></pre><script>a()</script><script>b()</script></body>",
		},
		{
			name: "no body appends",
			page: "<p>fragment</p>",
			want: "<p>fragment</p><script>a()</script><script>b()</script>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Inject([]byte(tt.page), scripts)))
		})
	}
}

func TestInjectWithoutScripts(t *testing.T) {
	page := []byte("<body></body>")
	assert.Equal(t, page, Inject(page, nil))
}

func TestLoadScripts(t *testing.T) {
	_, inject, _ := fixture(t)
	require.NoError(t, os.Mkdir(filepath.Join(inject, "dir.js"), 0o755))

	scripts, err := LoadScripts(inject)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "first()", string(scripts[0]))
	assert.Equal(t, "second()", string(scripts[1]))
}

func TestLoadScriptsMissingDir(t *testing.T) {
	scripts, err := LoadScripts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestProjectIndexGetsScripts(t *testing.T) {
	root, inject, web := fixture(t)
	h := New(root, inject, web)

	resp := get(t, h, "/project/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, "<html><body><h1>hi</h1><script>first()</script><script>second()</script></body></html>", body(t, resp))
}

func TestProjectSubdirectoryIndex(t *testing.T) {
	root, inject, web := fixture(t)
	h := New(root, inject, web)

	resp := get(t, h, "/project/docs/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>docs</p><script>first()</script><script>second()</script>", body(t, resp))
}

func TestProjectServesAssetsVerbatim(t *testing.T) {
	root, inject, web := fixture(t)
	h := New(root, inject, web)

	resp := get(t, h, "/project/src/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	assert.Equal(t, "body{}", body(t, resp))
}

func TestProjectMissingFile(t *testing.T) {
	root, inject, web := fixture(t)
	h := New(root, inject, web)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/project/nope.js").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/project/src/").StatusCode)
}

func TestProjectRefusesEscapes(t *testing.T) {
	root, inject, web := fixture(t)
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	writeFile(t, outside, "secret")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.txt")))

	h := New(root, inject, web)

	_, ok := h.resolve("../secret.txt")
	assert.False(t, ok, "dot-dot must not leave the root")

	resp := get(t, h, "/project/link.txt")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, body(t, resp), "secret")
}

func TestProjectRejectsWrites(t *testing.T) {
	root, inject, web := fixture(t)
	h := New(root, inject, web)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/project/index.html", strings.NewReader("x")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestIndexAndWebRoutes(t *testing.T) {
	root, inject, web := fixture(t)
	h := New(root, inject, web)

	resp := get(t, h, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<title>ui</title>", body(t, resp))

	resp = get(t, h, "/web/app.js")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ui()", body(t, resp))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/elsewhere").StatusCode)
}

func TestIndexWithoutWebDir(t *testing.T) {
	root, inject, _ := fixture(t)
	h := New(root, inject, filepath.Join(t.TempDir(), "missing"))

	if Embedded() != nil {
		t.Skip("binary carries the embedded UI")
	}
	assert.Equal(t, http.StatusNotFound, get(t, h, "/").StatusCode)
}

func TestBuiltinScripts(t *testing.T) {
	scripts := BuiltinScripts()
	require.Len(t, scripts, 2)
	assert.Contains(t, string(scripts[0]), "postMessage", "console mirror sorts first")
	assert.Contains(t, string(scripts[1]), "hmr::css_update")
}

func TestProjectPageGetsBuiltinClientByDefault(t *testing.T) {
	root, _, web := fixture(t)
	h := New(root, filepath.Join(t.TempDir(), "inject_scripts"), web)

	resp := get(t, h, "/project/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	for _, want := range []string{"hmr::css_update", "hmr::js_update", "hmr::reload", `"/ws"`} {
		assert.Contains(t, page, want)
	}
	assert.True(t, strings.HasSuffix(page, "</script></body></html>"), "scripts go before </body>")
}

func TestEmptyInjectDirDisablesBuiltinClient(t *testing.T) {
	root, _, web := fixture(t)
	h := New(root, t.TempDir(), web)

	assert.Equal(t, "<html><body><h1>hi</h1></body></html>", body(t, get(t, h, "/project/")))
}
