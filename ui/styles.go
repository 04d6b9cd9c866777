// Package ui provides the interactive terminal interface for vpndial.
// This file contains the lipgloss styles and theme support.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"vpndial/vpn"
)

// Status palette shared across the interface. The same colors mark
// connection state in the list rows, the header badge and the status
// bar.
const (
	colorConnected  = lipgloss.Color("#2ec27e")
	colorConnecting = lipgloss.Color("#e5a50a")
	colorError      = lipgloss.Color("#e01b24")
	colorAccent     = lipgloss.Color("#3584e4")
)

// Styles bundles the lipgloss styles used by the terminal interface.
type Styles struct {
	Title     lipgloss.Style
	Badge     lipgloss.Style
	Uptime    lipgloss.Style
	StatusBar lipgloss.Style
	StatusErr lipgloss.Style

	ItemTitle     lipgloss.Style
	ItemDesc      lipgloss.Style
	SelectedTitle lipgloss.Style
	SelectedDesc  lipgloss.Style

	LogTime lipgloss.Style
	LogLine lipgloss.Style

	FormTitle lipgloss.Style
	FormLabel lipgloss.Style
	FormError lipgloss.Style
	FormHint  lipgloss.Style
}

// NewStyles builds the style set for the configured theme. "dark" and
// "light" force the corresponding palette, anything else keeps the
// terminal background detection lipgloss performs on startup.
func NewStyles(theme string) *Styles {
	switch theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	subtle := lipgloss.AdaptiveColor{Light: "#6e6e6e", Dark: "#8a8a8a"}

	return &Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Badge:     lipgloss.NewStyle().Bold(true),
		Uptime:    lipgloss.NewStyle().Foreground(subtle),
		StatusBar: lipgloss.NewStyle().Foreground(subtle),
		StatusErr: lipgloss.NewStyle().Foreground(colorError),

		ItemTitle:     lipgloss.NewStyle(),
		ItemDesc:      lipgloss.NewStyle().Foreground(subtle),
		SelectedTitle: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		SelectedDesc:  lipgloss.NewStyle().Foreground(colorAccent),

		LogTime: lipgloss.NewStyle().Foreground(subtle),
		LogLine: lipgloss.NewStyle().Foreground(subtle),

		FormTitle: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		FormLabel: lipgloss.NewStyle().Width(10),
		FormError: lipgloss.NewStyle().Foreground(colorError),
		FormHint:  lipgloss.NewStyle().Foreground(subtle),
	}
}

// StateStyle returns the style that marks the given session state.
func (s *Styles) StateStyle(state vpn.SessionState) lipgloss.Style {
	switch state {
	case vpn.StateConnected:
		return s.Badge.Foreground(colorConnected)
	case vpn.StateConfiguring, vpn.StateDialing, vpn.StateDisconnecting:
		return s.Badge.Foreground(colorConnecting)
	case vpn.StateFailed:
		return s.Badge.Foreground(colorError)
	default:
		return s.Badge
	}
}
