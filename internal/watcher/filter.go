package watcher

import (
	"errors"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates an ignore pattern could not be compiled.
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// Filter decides which root-relative paths never produce change events.
type Filter struct {
	dirs     []string
	suffixes []string
	patterns []glob.Glob
}

// NewFilter builds a Filter. dirs are root-relative directory prefixes,
// suffixes are matched against the file name, and patterns are globs matched
// against the whole relative path with '/' as separator.
func NewFilter(dirs, suffixes, patterns []string) (*Filter, error) {
	f := &Filter{suffixes: append([]string(nil), suffixes...)}

	for _, d := range dirs {
		d = strings.Trim(path.Clean("/"+strings.ReplaceAll(d, "\\", "/")), "/")
		if d == "" {
			continue
		}
		f.dirs = append(f.dirs, d)
	}

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		f.patterns = append(f.patterns, g)
	}

	return f, nil
}

// ShouldIgnore reports whether rel (relative to the watched root, forward
// slashes) is filtered out. Rules are checked in order and the first match wins.
func (f *Filter) ShouldIgnore(rel string) bool {
	for _, d := range f.dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}

	name := path.Base(rel)
	for _, s := range f.suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}

	if isDigits(name) {
		return true
	}

	for _, g := range f.patterns {
		if g.Match(rel) {
			return true
		}
	}

	return false
}

// isDigits matches the numeric temp files some editors write (vim's "4913").
func isDigits(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}
