package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// filterAll is the category filter that shows every group.
const filterAll = "ALL"

// Header represents the top status bar component.
type Header struct {
	cacheStatus    string
	selectedFilter string
	categories     []string
	tier           string
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(cacheStatus string, categories []string) Header {
	return NewHeaderWithStyles(cacheStatus, categories, DefaultStyles())
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(cacheStatus string, categories []string, styles *StyleConfig) Header {
	return Header{
		cacheStatus:    cacheStatus,
		selectedFilter: filterAll,
		categories:     categories,
		tier:           tierLabels[tierAll],
		styles:         styles,
	}
}

// SetStatus replaces the cache status text.
func (h *Header) SetStatus(status string) {
	h.cacheStatus = status
}

// SetCategories replaces the categories offered by CycleFilter. A selected
// category that no longer exists resets the filter.
func (h *Header) SetCategories(categories []string) {
	h.categories = categories
	for _, c := range categories {
		if c == h.selectedFilter {
			return
		}
	}
	h.selectedFilter = filterAll
}

// GetFilter returns the current category filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter cycles to the next category
func (h *Header) CycleFilter() {
	filters := append([]string{filterAll}, h.categories...)
	next := 0
	for i, f := range filters {
		if f == h.selectedFilter {
			next = (i + 1) % len(filters)
			break
		}
	}
	h.selectedFilter = filters[next]
}

// SetTier sets the tier label shown in the header.
func (h *Header) SetTier(label string) {
	h.tier = label
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	status := sectionStyle.Render(h.cacheStatus)
	filter := sectionStyle.Render(fmt.Sprintf("Category: %s", h.selectedFilter))
	tier := sectionStyle.Render(fmt.Sprintf("Show: %s", h.tier))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, status, filter, tier, searchStyle.Render(searchText))

	return lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width).
		Render(content)
}
