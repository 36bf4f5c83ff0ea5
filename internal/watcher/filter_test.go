package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestFilter(t *testing.T, patterns ...string) *Filter {
	t.Helper()
	f, err := NewFilter(
		[]string{"target", ".git"},
		[]string{"~", ".swp", ".swo", ".tmp"},
		patterns,
	)
	require.NoError(t, err)
	return f
}

func TestFilterShouldIgnore(t *testing.T) {
	f := defaultTestFilter(t)

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{"build output dir itself", "target", true},
		{"file under build output", "target/debug/app", true},
		{"vcs metadata", ".git/HEAD", true},
		{"nested vcs object", ".git/objects/ab/cdef", true},
		{"dir name prefix only", "targets/file.js", false},
		{"nested dir with same name", "src/target/file.js", false},
		{"tilde backup", "src/app.js~", true},
		{"vim swap", "src/.app.js.swp", true},
		{"vim swap alt", "src/.app.js.swo", true},
		{"generic temp", "notes.tmp", true},
		{"numeric temp", "4913", true},
		{"nested numeric temp", "src/123456", true},
		{"long numeric name", "98765432109876543210", true},
		{"digits with extension", "123.js", false},
		{"signed number", "+12", false},
		{"regular css", "src/app.css", false},
		{"regular html", "index.html", false},
		{"dotfile", ".env", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ShouldIgnore(tt.rel))
		})
	}
}

func TestFilterPatterns(t *testing.T) {
	f := defaultTestFilter(t, "**/node_modules/**", "*.log", "dist/**")

	assert.True(t, f.ShouldIgnore("web/node_modules/react/index.js"))
	assert.True(t, f.ShouldIgnore("server.log"))
	assert.True(t, f.ShouldIgnore("dist/bundle.js"))
	assert.False(t, f.ShouldIgnore("src/server.log.js"))
	assert.False(t, f.ShouldIgnore("src/dist/bundle.js"))
}

func TestFilterNormalizesDirs(t *testing.T) {
	f, err := NewFilter([]string{"./build/", "/out", ""}, nil, nil)
	require.NoError(t, err)

	assert.True(t, f.ShouldIgnore("build/app.js"))
	assert.True(t, f.ShouldIgnore("out/index.html"))
	assert.False(t, f.ShouldIgnore("src/app.js"))
}

func TestFilterInvalidPattern(t *testing.T) {
	_, err := NewFilter(nil, nil, []string{"[unclosed"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestEmptyFilterOnlyIgnoresDigits(t *testing.T) {
	f := &Filter{}
	assert.False(t, f.ShouldIgnore("target/app.js"))
	assert.False(t, f.ShouldIgnore("a.swp"))
	assert.True(t, f.ShouldIgnore("4913"))
}
