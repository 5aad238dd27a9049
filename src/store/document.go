package store

import (
	"sort"
	"time"

	"buildtriage/src/contracts"
)

// DefaultRetentionDays matches the Jenkins build retention.
const DefaultRetentionDays = 30

// Document is the persisted cache: every classified build and failure, keyed by id.
type Document struct {
	Builds        map[string]*contracts.Build   `json:"builds"`
	Failures      map[string]*contracts.Failure `json:"failures"`
	Timestamp     time.Time                     `json:"timestamp"`
	RetentionDays int                           `json:"retention_days"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Builds:        make(map[string]*contracts.Build),
		Failures:      make(map[string]*contracts.Failure),
		RetentionDays: DefaultRetentionDays,
	}
}

// HasBuild reports whether the document already holds the build id.
func (d *Document) HasBuild(id string) bool {
	_, ok := d.Builds[id]
	return ok
}

// FailuresOf returns the failures referenced by the build, in build order.
// Missing references are skipped.
func (d *Document) FailuresOf(b *contracts.Build) []*contracts.Failure {
	out := make([]*contracts.Failure, 0, len(b.Failures))
	for _, id := range b.Failures {
		if f, ok := d.Failures[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// SortedBuilds returns the builds ordered by start time, newest first, then by id.
func (d *Document) SortedBuilds() []*contracts.Build {
	builds := make([]*contracts.Build, 0, len(d.Builds))
	for _, b := range d.Builds {
		builds = append(builds, b)
	}
	sort.Slice(builds, func(i, j int) bool {
		if !builds[i].Timestamp.Equal(builds[j].Timestamp) {
			return builds[i].Timestamp.After(builds[j].Timestamp)
		}
		return builds[i].ID < builds[j].ID
	})
	return builds
}

// Clone returns a copy whose maps can be modified independently. Records are shared.
func (d *Document) Clone() *Document {
	c := &Document{
		Builds:        make(map[string]*contracts.Build, len(d.Builds)),
		Failures:      make(map[string]*contracts.Failure, len(d.Failures)),
		Timestamp:     d.Timestamp,
		RetentionDays: d.RetentionDays,
	}
	for k, v := range d.Builds {
		c.Builds[k] = v
	}
	for k, v := range d.Failures {
		c.Failures[k] = v
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
