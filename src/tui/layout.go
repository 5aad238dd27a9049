package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
// Render and resize both use it so they agree.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line (1) + panel column header row (1) + panel borders (2)
	availableHeight := max(m.height-headerHeight-1-1-2, 1)

	// Two-panel layout: failure list (40%) | detail (60%)
	leftPanelWidth := int(float64(m.width) * 0.4)
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	if m.status != StatusReady {
		body := m.progress.View()
		if m.status == StatusError {
			body = lipgloss.NewStyle().
				Foreground(m.styles.ErrorColor).
				Render(Wrap(fmt.Sprintf("Failed to load cache: %v\n\nPress r to retry, q to quit.", m.err), m.width-4))
		}
		centered := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(body)
		return lipgloss.JoinVertical(lipgloss.Left, header, centered)
	}

	dims := m.calculateDimensions()
	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, m.renderHelpText())
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sep := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Render("•")

	var helpText string
	switch {
	case m.searchMode:
		helpText = fmt.Sprintf("%s: Apply %s %s: Clear",
			keyStyle.Render("Enter"), sep,
			keyStyle.Render("Esc"))
	case m.detailFocused:
		helpText = fmt.Sprintf("%s: Scroll %s %s: Back %s %s: Quit",
			keyStyle.Render("j/k"), sep,
			keyStyle.Render("Esc"), sep,
			keyStyle.Render("q"))
	default:
		helpText = fmt.Sprintf("%s: Nav %s %s: All/Unique/Noise %s %s: View %s %s: Category %s %s: Reload %s %s %s",
			keyStyle.Render("j/k"), sep,
			keyStyle.Render("0/1/2"), sep,
			keyStyle.Render("Enter"), sep,
			keyStyle.Render("Tab"), sep,
			keyStyle.Render("r"), sep,
			keyStyle.Render("/"), keyStyle.Render("q"))
	}

	return m.styles.HelpStyle().MaxWidth(m.width).Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	// borders
	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight
	m.refreshDetail()
}
