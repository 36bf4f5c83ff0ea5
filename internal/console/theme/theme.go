// Package theme provides the Lip Gloss color palette and reusable styles
// for the dev console. It is a leaf package with no internal imports.
package theme

import "github.com/charmbracelet/lipgloss"

// Update colors, one per push message type.
var (
	ColorReload = lipgloss.Color("#dc2626")
	ColorStyle  = lipgloss.Color("#06b6d4")
	ColorScript = lipgloss.Color("#d97706")
	ColorNotify = lipgloss.Color("#9ca3af")
)

// Conversation colors.
var (
	ColorCommand = lipgloss.Color("#a855f7")
	ColorOutput  = lipgloss.Color("#e5e7eb")
	ColorRelay   = lipgloss.Color("#3b82f6")
	ColorSystem  = lipgloss.Color("#6b7280")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// KindColor returns the color for a log entry kind.
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case "reload":
		return ColorReload
	case "css":
		return ColorStyle
	case "js":
		return ColorScript
	case "upd":
		return ColorNotify
	case "$":
		return ColorCommand
	case "out":
		return ColorOutput
	case "err":
		return ColorDanger
	case "msg":
		return ColorRelay
	default:
		return ColorSystem
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Background(ColorDanger).
			Padding(0, 1)
)
