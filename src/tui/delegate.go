package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	listRenderingOverhead = 10

	// Marker column: "!" for unique failures, "~" for noise.
	markerWidth = 1
)

// Delegate renders failure groups as table rows.
type Delegate struct {
	RankWidth  int
	RecurWidth int
	styles     *StyleConfig
}

// NewDelegate creates a new delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		RankWidth:  2,
		RecurWidth: 2,
		styles:     styles,
	}
}

// SetColumnWidths sets the widths for rank and recurrence columns
func (d *Delegate) SetColumnWidths(maxRank, maxRecurrence int) {
	d.RankWidth = max(len(fmt.Sprint(maxRank)), 2)
	d.RecurWidth = max(len(fmt.Sprint(maxRecurrence)), 2)
}

// Height returns the height of a list item
func (d Delegate) Height() int { return 1 }

// Spacing returns spacing between items
func (d Delegate) Spacing() int { return 0 }

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

// fixedWidth is the width of every column but the snippet, separators included.
func (d Delegate) fixedWidth() int {
	return d.RankWidth + d.RecurWidth + markerWidth + 9
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	marker := "!"
	if entry.Noise() {
		marker = "~"
	}

	var snippet string
	if available := m.Width() - d.fixedWidth() - listRenderingOverhead; available > 0 {
		snippet = TruncateAndPad(entry.Snippet(), available, true)
	}

	line := fmt.Sprintf("%*d │ %*d │ %s │ %s",
		d.RankWidth, entry.Rank,
		d.RecurWidth, entry.Recurrence(),
		marker, snippet)

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if index == m.Index() {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
	}

	fmt.Fprint(w, style.Render(line))
}
