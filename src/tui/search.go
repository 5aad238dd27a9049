package tui

import (
	"strings"

	"buildtriage/src/contracts"
)

// Tier filters selected with the 0/1/2 keys.
const (
	tierAll = iota
	tierUnique
	tierNoise
)

var tierLabels = map[int]string{
	tierAll:    "all",
	tierUnique: "unique",
	tierNoise:  "noise",
}

// filterItems keeps the items matching the category filter, the tier and the
// lowercase search query.
func filterItems(items []Item, category string, tier int, query string) []Item {
	var filtered []Item
	for _, item := range items {
		if category != filterAll && item.Group.Category != contracts.Category(category) {
			continue
		}
		if (tier == tierUnique && item.Noise()) || (tier == tierNoise && !item.Noise()) {
			continue
		}
		if query != "" && !item.matches(query) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

// applyFilter filters items by category, tier and search query
func (m *MainModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.searchQuery))
	m.listView.SetItems(filterItems(m.items, m.header.GetFilter(), m.tier, query))
	m.refreshDetail()
}
