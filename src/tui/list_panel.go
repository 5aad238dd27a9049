package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderListPanel renders the left panel with the failure group list
func (m MainModel) renderListPanel(width, height int) string {
	// list size is set in resizeComponents, not here
	listPanel := m.styles.PanelStyle(!m.detailFocused).
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	delegate := m.listView.GetDelegate()
	headerText := fmt.Sprintf("%*s │ %*s │ T │ Failure",
		delegate.RankWidth, "Rk",
		delegate.RecurWidth, "Ct")
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(Truncate(headerText, width-4, true))

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}
