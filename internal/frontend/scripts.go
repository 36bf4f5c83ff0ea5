package frontend

import (
	"embed"
	"errors"
	"io/fs"
	"log"
	"os"
	"path"
)

//go:embed inject/*.js
var builtinFS embed.FS

// BuiltinScripts returns the live-update client shipped with the binary, in
// the same order LoadScripts would read it from disk.
func BuiltinScripts() [][]byte {
	scripts, err := readScripts(builtinFS, "inject")
	if err != nil {
		panic(err)
	}
	return scripts
}

// LoadScripts reads every *.js file directly inside dir, ordered by name. A
// missing dir yields no scripts and no error.
func LoadScripts(dir string) ([][]byte, error) {
	if dir == "" {
		return nil, nil
	}
	scripts, err := readScripts(os.DirFS(dir), ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return scripts, err
}

func readScripts(fsys fs.FS, dir string) ([][]byte, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var scripts [][]byte
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".js" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return scripts, err
		}
		scripts = append(scripts, data)
	}
	return scripts, nil
}

// scripts picks what gets injected into project pages: the inject dir when
// it exists, the built-in client otherwise.
func (h *Handler) scripts() [][]byte {
	if h.injectDir != "" {
		if _, err := os.Stat(h.injectDir); err == nil {
			scripts, err := LoadScripts(h.injectDir)
			if err != nil {
				log.Printf("frontend: reading %s: %v", h.injectDir, err)
			}
			return scripts
		}
	}
	return BuiltinScripts()
}
