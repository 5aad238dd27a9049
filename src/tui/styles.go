package tui

import (
	"github.com/charmbracelet/lipgloss"

	"buildtriage/src/contracts"
)

// StyleConfig holds all customizable style colors for the browser.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color
	ErrorColor     lipgloss.Color
	NoiseColor     lipgloss.Color

	// Accent per failure category; categories not listed use TextPrimary
	CategoryColors map[contracts.Category]lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		ErrorColor:     lipgloss.Color("#EA4335"),
		NoiseColor:     lipgloss.Color("#FBBC04"),
		CategoryColors: map[contracts.Category]lipgloss.Color{
			contracts.CategoryRemoteDependency: lipgloss.Color("#24C1E0"),
			contracts.CategoryMirror:           lipgloss.Color("#24C1E0"),
			contracts.CategorySSH:              lipgloss.Color("#A142F4"),
			contracts.CategoryKeys:             lipgloss.Color("#A142F4"),
			contracts.CategoryLocalTask:        lipgloss.Color("#EA4335"),
			contracts.CategoryBootstrap:        lipgloss.Color("#EA4335"),
			contracts.CategoryTempest:          lipgloss.Color("#34A853"),
			contracts.CategoryInfra:            lipgloss.Color("#FBBC04"),
		},
	}
}

// CategoryStyle returns the foreground style for a failure category.
func (s *StyleConfig) CategoryStyle(c contracts.Category) lipgloss.Style {
	color, ok := s.CategoryColors[c]
	if !ok {
		color = s.TextPrimary
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PanelStyle returns the bordered panel style; focused panels use the accent border.
func (s *StyleConfig) PanelStyle(focused bool) lipgloss.Style {
	border := s.BorderColor
	if focused {
		border = s.AccentBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}
