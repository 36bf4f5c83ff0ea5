package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	b := NewBridge("sh", "", 0)

	out, err := b.Run(context.Background(), "echo hi")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
}

func TestRunPassesWholeLineToShell(t *testing.T) {
	b := NewBridge("sh", "", 0)

	out, err := b.Run(context.Background(), "printf '%s-%s' a b | tr a-z A-Z")
	require.NoError(t, err)
	assert.Equal(t, "A-B", out)
}

func TestRunNonZeroExit(t *testing.T) {
	b := NewBridge("sh", "", 0)

	out, err := b.Run(context.Background(), "echo partial; echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, errors.Is(err, ErrCommandFailed))

	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.ExitCode)
	assert.Equal(t, "boom\n", ce.Output)
	assert.Contains(t, ce.Error(), "exit 3")
}

func TestRunMissingShell(t *testing.T) {
	b := NewBridge(filepath.Join(t.TempDir(), "no-such-shell"), "", 0)

	_, err := b.Run(context.Background(), "echo hi")
	require.Error(t, err)

	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, -1, ce.ExitCode)
	assert.NotEmpty(t, ce.Output)
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestRunReplacesInvalidUTF8(t *testing.T) {
	b := NewBridge("sh", "", 0)

	out, err := b.Run(context.Background(), `printf 'ok\377done'`)
	require.NoError(t, err)
	assert.Equal(t, "ok�done", out)
}

func TestRunUsesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("here"), 0644))
	b := NewBridge("sh", dir, 0)

	out, err := b.Run(context.Background(), "cat marker.txt")
	require.NoError(t, err)
	assert.Equal(t, "here", out)
}

func TestRunTimeout(t *testing.T) {
	b := NewBridge("sh", "", 100*time.Millisecond)

	start := time.Now()
	_, err := b.Run(context.Background(), "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunContextCancelled(t *testing.T) {
	b := NewBridge("sh", "", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, "echo never")
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestNewBridgeDefaultsShell(t *testing.T) {
	assert.Equal(t, "sh", NewBridge("", "", 0).Shell)
}
