package ranking

import (
	"fmt"
	"sort"
	"strings"

	"buildtriage/src/contracts"
	"buildtriage/src/store"
)

// buildFields maps the JSON name of each queryable build attribute to its value.
var buildFields = map[string]func(b *contracts.Build) string{
	"id":        func(b *contracts.Build) string { return b.ID },
	"job_name":  func(b *contracts.Build) string { return b.JobName },
	"build_num": func(b *contracts.Build) string { return b.BuildNum },
	"result":    func(b *contracts.Build) string { return string(b.Result) },
	"branch":    func(b *contracts.Build) string { return b.Branch },
	"repo":      func(b *contracts.Build) string { return b.Repo },
	"os":        func(b *contracts.Build) string { return b.OS },
	"stage":     func(b *contracts.Build) string { return string(b.Stage) },
	"trigger":   func(b *contracts.Build) string { return string(b.Trigger) },
}

// QueryFields lists the attributes accepted by Query.
func QueryFields() []string {
	fields := make([]string, 0, len(buildFields))
	for f := range buildFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ParseQuery splits a "field=value" expression.
func ParseQuery(expr string) (field, value string, err error) {
	field, value, ok := strings.Cut(expr, "=")
	if !ok || field == "" {
		return "", "", fmt.Errorf("query %q must have the form field=value", expr)
	}
	return strings.TrimSpace(field), value, nil
}

// Query returns the builds whose field contains value, newest first.
func Query(doc *store.Document, field, value string) ([]*contracts.Build, error) {
	get, ok := buildFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q (expected one of %s)", field, strings.Join(QueryFields(), ", "))
	}

	var matches []*contracts.Build
	for _, b := range doc.SortedBuilds() {
		if strings.Contains(get(b), value) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}
