package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"buildtriage/src/contracts"
)

// maxDetailBuilds caps the builds listed for one group.
const maxDetailBuilds = 50

// renderDetail renders the detail content for a failure group
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	g := item.Group
	now := m.clock.Now()
	content := strings.Builder{}

	secondary := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)
	label := secondary.Bold(true)
	wrap := func(s string) string { return Wrap(s, maxWidth) }

	tier := "unique"
	if item.Noise() {
		tier = "noise (also seen on successful builds)"
	}
	fmt.Fprintln(&content, m.styles.CategoryStyle(g.Category).Render(wrap(fmt.Sprintf("%s | %s", g.Type, g.Category))))
	fmt.Fprintln(&content, secondary.Render(wrap(g.Description)))
	fmt.Fprintln(&content, secondary.Render(wrap("Tier: "+tier)))
	fmt.Fprintln(&content)

	fmt.Fprintln(&content, label.Render("Detail:"))
	fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.ErrorColor).Render(wrap(item.Detail())))
	fmt.Fprintln(&content)

	fmt.Fprintln(&content, label.Render(wrap(fmt.Sprintf("Seen %s, last %d days:", pluralize(g.Count, "time"), len(g.Histogram)))))
	fmt.Fprintln(&content, wrap(Sparkline(g.Histogram)))
	fmt.Fprintln(&content, secondary.Render(wrap(fmt.Sprintf("first %s, last %s",
		humanize.RelTime(g.Oldest.Timestamp, now, "ago", "from now"),
		humanize.RelTime(g.Newest.Timestamp, now, "ago", "from now")))))
	fmt.Fprintln(&content)

	fmt.Fprintln(&content, label.Render("Builds:"))
	for i, b := range g.Builds {
		if i == maxDetailBuilds {
			fmt.Fprintln(&content, secondary.Render(wrap(fmt.Sprintf("... %d more", len(g.Builds)-i))))
			break
		}
		fmt.Fprintln(&content, m.renderBuildLine(b, maxWidth))
	}

	return content.String()
}

// renderBuildLine renders one build of a group: time, result, job, number and branch.
func (m MainModel) renderBuildLine(b *contracts.Build, maxWidth int) string {
	style := lipgloss.NewStyle().Foreground(m.styles.TextPrimary)
	if b.Result.IsSuccess() {
		style = style.Foreground(m.styles.NoiseColor)
	}
	line := fmt.Sprintf("%s %-8s %s #%s %s",
		b.Timestamp.Format("2006-01-02 15:04"), b.Result, b.JobName, b.BuildNum, b.Branch)
	return style.Render(Wrap(line, maxWidth))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}

// refreshDetail shows the selected item in the viewport.
func (m *MainModel) refreshDetail() {
	item, ok := m.listView.GetSelectedItem()
	if !ok {
		m.detailViewport.SetContent("")
		return
	}
	maxWidth := m.detailViewport.Width - 2 // 1 char padding on each side
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	headerText := " "
	if item, ok := m.listView.GetSelectedItem(); ok {
		headerText = fmt.Sprintf("Failure #%d: %s", item.Rank, item.Group.Type)
	}
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 1).
		Render(Truncate(headerText, width-2, true))

	body := m.detailViewport.View()
	style := m.styles.PanelStyle(m.detailFocused).
		Width(width - 2).
		Height(height)
	if m.listView.Len() == 0 {
		body = "No failures match"
		style = style.Align(lipgloss.Center, lipgloss.Center).
			Foreground(m.styles.TextSecondary).
			Faint(true)
	}

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, style.Render(body))
}
