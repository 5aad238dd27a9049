package store

import (
	"fmt"
	"time"

	"buildtriage/src/contracts"
)

// Violation is a cache entry removed by integrity repair.
type Violation struct {
	// "build" or "failure".
	Kind   string
	ID     string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.ID, v.Reason)
}

// Merge combines the previous document with the builds and failures classified in
// this run:
//   - builds that started more than retentionDays before now are dropped with their failures;
//   - a build already present in prev is kept as is, and the current run's copy and
//     its failures are discarded;
//   - integrity is repaired until stable, and every removal is returned.
//
// prev is not modified. A nil prev is treated as empty.
func Merge(prev *Document, builds []*contracts.Build, failures []*contracts.Failure, retentionDays int, now time.Time) (*Document, []Violation) {
	if prev == nil {
		prev = NewDocument()
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	doc := NewDocument()
	doc.Timestamp = now
	doc.RetentionDays = retentionDays

	expired := make(map[string]bool)
	fromCurrent := make(map[string]bool)

	for id, b := range prev.Builds {
		if b.Timestamp.Before(cutoff) {
			expired[id] = true
			continue
		}
		doc.Builds[id] = b
	}
	for _, b := range builds {
		if _, known := prev.Builds[b.ID]; known {
			continue
		}
		if b.Timestamp.Before(cutoff) {
			expired[b.ID] = true
			continue
		}
		doc.Builds[b.ID] = b
		fromCurrent[b.ID] = true
	}

	for id, f := range prev.Failures {
		if expired[f.BuildID] {
			continue
		}
		doc.Failures[id] = f
	}
	for _, f := range failures {
		if expired[f.BuildID] {
			continue
		}
		if _, known := prev.Builds[f.BuildID]; known && !fromCurrent[f.BuildID] {
			continue
		}
		if _, exists := doc.Failures[f.ID]; exists {
			continue
		}
		doc.Failures[f.ID] = f
	}

	return doc, Repair(doc)
}

// Repair removes, until nothing changes, builds whose key differs from their id or
// that reference a missing failure, and failures whose key differs from their id or
// whose build is missing. Keys are visited in sorted order.
func Repair(doc *Document) []Violation {
	var violations []Violation

	for changed := true; changed; {
		changed = false

		for _, id := range sortedKeys(doc.Builds) {
			b := doc.Builds[id]
			reason := ""
			switch {
			case b == nil:
				reason = "empty record"
			case b.ID != id:
				reason = fmt.Sprintf("stored under key %s but has id %s", id, b.ID)
			default:
				for _, fid := range b.Failures {
					if _, ok := doc.Failures[fid]; !ok {
						reason = fmt.Sprintf("references missing failure %s", fid)
						break
					}
				}
			}
			if reason != "" {
				delete(doc.Builds, id)
				violations = append(violations, Violation{Kind: "build", ID: id, Reason: reason})
				changed = true
			}
		}

		for _, id := range sortedKeys(doc.Failures) {
			f := doc.Failures[id]
			reason := ""
			switch {
			case f == nil:
				reason = "empty record"
			case f.ID != id:
				reason = fmt.Sprintf("stored under key %s but has id %s", id, f.ID)
			case doc.Builds[f.BuildID] == nil:
				reason = fmt.Sprintf("belongs to missing build %s", f.BuildID)
			}
			if reason != "" {
				delete(doc.Failures, id)
				violations = append(violations, Violation{Kind: "failure", ID: id, Reason: reason})
				changed = true
			}
		}
	}

	return violations
}
