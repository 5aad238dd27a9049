package tui

import (
	"strings"

	"buildtriage/src/patterns"
	"buildtriage/src/ranking"
	"buildtriage/src/sanitize"
)

// Item is one failure group in the browser list. It implements bubbles/list.Item.
type Item struct {
	Group *ranking.Group
	Rank  int
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Group.Key }

// Title returns the failure type.
func (i Item) Title() string { return i.Group.Type }

// Description returns the failure category.
func (i Item) Description() string { return string(i.Group.Category) }

// Recurrence returns how many builds hit this failure.
func (i Item) Recurrence() int { return i.Group.Count }

// Noise reports whether the failure was also seen on a successful build.
func (i Item) Noise() bool { return i.Group.Tier == ranking.TierNoise }

// Detail returns the display form of the most recent detail.
func (i Item) Detail() string {
	return sanitize.Clean(patterns.Normalize(i.Group.Detail, patterns.MaskPresentation))
}

// Snippet is the single-line text shown in the list.
func (i Item) Snippet() string {
	detail := strings.Join(strings.Fields(i.Detail()), " ")
	if detail == "" {
		return i.Group.Type
	}
	return i.Group.Type + ": " + detail
}

// matches reports whether the lowercase query appears in the group's type,
// category, detail or one of its job names.
func (i Item) matches(query string) bool {
	fields := []string{i.Group.Type, string(i.Group.Category), i.Group.Detail}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	for _, b := range i.Group.Builds {
		if strings.Contains(strings.ToLower(b.JobName), query) {
			return true
		}
	}
	return false
}
