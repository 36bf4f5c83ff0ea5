package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/livedev/devserver/internal/console/theme"
	"github.com/livedev/devserver/internal/ws"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Relay     bool
	Server    *ws.StatusResponse
	Width     int
}

func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	mode := lipgloss.NewStyle().Foreground(theme.ColorCommand).Render("cmd")
	if m.Relay {
		mode = lipgloss.NewStyle().Foreground(theme.ColorRelay).Render("relay")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + "mode: " + mode
	if s := m.Server; s != nil {
		uptime := (time.Duration(s.UptimeSeconds) * time.Second).String()
		content += sep + fmt.Sprintf("%d clients  up %s  rss %s", s.Clients, uptime, formatBytes(s.RSSBytes))
		content += sep + theme.StyleDimmed.Render(s.Root)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
