// Package ranking aggregates the cache into the views shared by the summary
// command, the TUI and the MCP server: failure groups ordered by recurrence, and
// periodic build trends.
package ranking

import (
	"sort"
	"time"

	"buildtriage/src/contracts"
	"buildtriage/src/detect"
	"buildtriage/src/patterns"
	"buildtriage/src/store"
)

// Tier constants for failure groups.
const (
	TierUnique = 1 // Only seen on builds that did not succeed
	TierNoise  = 3 // Also seen on successful builds
)

const day = 24 * time.Hour

// Group is one recurring failure: every failure whose type and normalized detail match.
type Group struct {
	// Key is the type and grouping-level detail, see patterns.GroupKey.
	Key         string
	Type        string
	Category    contracts.Category
	Description string
	// Detail of the most recent occurrence, for display.
	Detail string

	Count  int
	Oldest *contracts.Build
	Newest *contracts.Build
	// Histogram counts occurrences per day; the last bucket is the day ending now.
	Histogram []int
	// Builds holds every build with this failure, newest first.
	Builds []*contracts.Build
	Tier   int
}

// GroupFailures groups the document's failures across builds. Unknown Failures
// are left out. histogramDays sets the histogram length; a non-positive value
// uses the document's retention. Groups are ordered by count, then by newest
// occurrence, then by key.
func GroupFailures(doc *store.Document, histogramDays int, now time.Time) []*Group {
	if histogramDays <= 0 {
		histogramDays = doc.RetentionDays
	}
	if histogramDays <= 0 {
		histogramDays = store.DefaultRetentionDays
	}

	groups := make(map[string]*Group)
	for _, b := range doc.SortedBuilds() {
		for _, f := range doc.FailuresOf(b) {
			if f.Type == detect.UnknownFailureName {
				continue
			}

			key := patterns.GroupKey(f.Type, f.Detail())
			g, ok := groups[key]
			if !ok {
				g = &Group{
					Key:         key,
					Type:        f.Type,
					Category:    f.Category,
					Description: f.Description,
					Detail:      f.Detail(),
					Histogram:   make([]int, histogramDays),
					Tier:        TierUnique,
				}
				groups[key] = g
			}
			g.add(b, now)
		}
	}

	result := make([]*Group, 0, len(groups))
	for _, g := range groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.Newest.Timestamp.Equal(b.Newest.Timestamp) {
			return a.Newest.Timestamp.After(b.Newest.Timestamp)
		}
		return a.Key < b.Key
	})
	return result
}

// add records one occurrence. Builds arrive newest first.
func (g *Group) add(b *contracts.Build, now time.Time) {
	g.Count++
	g.Builds = append(g.Builds, b)
	if g.Newest == nil || b.Timestamp.After(g.Newest.Timestamp) {
		g.Newest = b
	}
	if g.Oldest == nil || b.Timestamp.Before(g.Oldest.Timestamp) {
		g.Oldest = b
	}
	if b.Result.IsSuccess() {
		g.Tier = TierNoise
	}
	if i := bucket(b.Timestamp, now, len(g.Histogram)); i >= 0 {
		g.Histogram[i]++
	}
}

// bucket returns the histogram index for ts, or -1 when it falls outside the window.
func bucket(ts, now time.Time, days int) int {
	age := now.Sub(ts)
	if age < 0 {
		return -1
	}
	ageDays := int(age / day)
	if ageDays >= days {
		return -1
	}
	return days - ageDays - 1
}

// Split separates unique groups from noise, preserving order.
func Split(groups []*Group) (unique, noise []*Group) {
	for _, g := range groups {
		switch g.Tier {
		case TierUnique:
			unique = append(unique, g)
		case TierNoise:
			noise = append(noise, g)
		}
	}
	return unique, noise
}

// CategoryCounts totals the group counts per category, in taxonomy order. Categories
// without failures are omitted.
func CategoryCounts(groups []*Group) []CategoryCount {
	totals := make(map[contracts.Category]int)
	for _, g := range groups {
		totals[g.Category] += g.Count
	}

	var out []CategoryCount
	for _, c := range contracts.Categories {
		if n := totals[c]; n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	return out
}

// CategoryCount is the number of failures in one category.
type CategoryCount struct {
	Category contracts.Category
	Count    int
}
