// Package eventlog provides the scrollable log of pushes, relays and command
// output.
package eventlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/livedev/devserver/internal/console/theme"
)

const maxEntries = 500

// Entry is a single log line.
type Entry struct {
	Time    time.Time
	Kind    string // "css", "js", "$", "out", "err", "msg", "sys", ...
	Message string
}

// Model holds log state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset (from bottom)
}

func New() Model {
	return Model{}
}

// Add appends an entry and caps the buffer. Multi-line messages become one
// entry per line so scrolling stays line-based.
func (m *Model) Add(kind, message string) {
	now := time.Now()
	for _, line := range strings.Split(strings.TrimRight(message, "\n"), "\n") {
		m.Entries = append(m.Entries, Entry{Time: now, Kind: kind, Message: line})
	}
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// Clear drops every entry.
func (m *Model) Clear() {
	m.Entries = nil
	m.Offset = 0
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Entries) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

// View renders the newest entries that fit in height lines.
func (m Model) View(width, height int) string {
	if height < 1 {
		height = 1
	}
	if len(m.Entries) == 0 {
		return theme.StyleDimmed.Render("  Waiting for updates. Type a command and press enter.")
	}

	end := len(m.Entries) - m.Offset
	start := end - height
	if start < 0 {
		start = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		e := m.Entries[i]
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05"))
		kind := lipgloss.NewStyle().Foreground(theme.KindColor(e.Kind)).Width(6).Render(e.Kind)
		msg := e.Message
		if limit := width - 16; limit > 3 && len(msg) > limit {
			msg = msg[:limit-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, kind, msg))
	}
	if m.Offset > 0 {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset)))
	}
	return strings.Join(lines, "\n")
}
