package status

import (
	"testing"

	"github.com/livedev/devserver/internal/ws"
	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:             "512B",
		2048:            "2.0KiB",
		5 * 1024 * 1024: "5.0MiB",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatBytes(in), "formatBytes(%d)", in)
	}
}

func TestViewIncludesServerStatus(t *testing.T) {
	m := New()
	m.Width = 120
	m.Connected = true
	m.Relay = true
	m.Server = &ws.StatusResponse{Clients: 3, Root: "/work/site", UptimeSeconds: 90}

	v := m.View()
	for _, want := range []string{"Connected", "relay", "3 clients", "1m30s", "/work/site"} {
		assert.Contains(t, v, want)
	}
}
