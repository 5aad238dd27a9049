// Package patterns normalizes failure details.
//
// The same detail is rendered at two levels:
//   - MaskGrouping: identifiers that differ between occurrences of the same
//     failure are replaced, so recurring failures share one key.
//   - MaskPresentation: the detail is only tidied for display.
package patterns

import (
	"regexp"
	"strings"
)

// MaskingLevel controls how aggressively a detail is normalized.
type MaskingLevel int

const (
	// MaskPresentation keeps every identifier.
	// Use for: MCP responses, UI display.
	// Example: /var/lib/jenkins/workspace/job/src/file.py:42 → .../file.py:42
	MaskPresentation MaskingLevel = iota

	// MaskGrouping replaces volatile identifiers with placeholders.
	// Use for: failure groups and recurrence counts.
	// Example: Failed to connect to 10.0.0.4 → Failed to connect to **IPv4**
	MaskGrouping
)

// Placeholders substituted by MaskGrouping.
const (
	PlaceholderUUID       = "**UUID**"
	PlaceholderIPv4       = "**IPv4**"
	PlaceholderTxID       = "**TX_ID**"
	PlaceholderEntity     = "**Entity**"
	PlaceholderHTTPTxID   = "**HTTP_TX_ID**"
	PlaceholderAnsibleTmp = "ansible-tmp-**Removed**"
	PlaceholderNodeName   = "**node-name**"
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

// groupingRules are applied in order; later rules see earlier substitutions.
var groupingRules = []replacement{
	// 550e8400-e29b-41d4-a716-446655440000, also the loose form used in host names
	{regexp.MustCompile(`([0-9a-zA-Z]+-){4}[0-9a-zA-Z]+`), PlaceholderUUID},
	{regexp.MustCompile(`([0-9]+\.){3}[0-9]+`), PlaceholderIPv4},
	// monitoring API transaction ids: .k1k.me
	{regexp.MustCompile(`\S*k1k\.me\S*`), PlaceholderTxID},
	{regexp.MustCompile(`/\d+/entities(/[^/]*)?|/\d+/agent_tokens`), PlaceholderEntity},
	{regexp.MustCompile(`'httpdTxnId': '[^']*'`), PlaceholderHTTPTxID},
	{regexp.MustCompile(`ansible-tmp-[^/]*`), PlaceholderAnsibleTmp},
	{regexp.MustCompile(`(nodepool-[a-zA-Z_0-9]+-[0-9]+)|([a-z]+-[0-9]+-[a-z0-9]+)`), PlaceholderNodeName},
}

var (
	// timestampPattern matches ISO8601 and common log timestamps.
	// Matches: 2024-05-21T10:00:05.123Z, 2024-05-21 10:00:05,123, etc.
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}([.,]\d+)?(Z|[+-]\d{2}:?\d{2})?`)

	// longPathPattern matches absolute paths with 3+ directories.
	// Captures filename and optional line number for preservation.
	longPathPattern = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize renders a failure detail at the given level.
func Normalize(detail string, level MaskingLevel) string {
	switch level {
	case MaskGrouping:
		for _, r := range groupingRules {
			detail = r.pattern.ReplaceAllString(detail, r.with)
		}
	case MaskPresentation:
		detail = stripLeadingTimestamp(detail)
		detail = longPathPattern.ReplaceAllString(detail, ".../$1")
	}
	return normalizeWhitespace(detail)
}

// GroupKey is the key failures are grouped under: the type and the grouping-level detail.
func GroupKey(failureType, detail string) string {
	return failureType + ": " + Normalize(detail, MaskGrouping)
}

func stripLeadingTimestamp(line string) string {
	if loc := timestampPattern.FindStringIndex(line); loc != nil && loc[0] < 5 {
		return strings.TrimSpace(line[loc[1]:])
	}
	return line
}

// normalizeWhitespace collapses multiple spaces and trims.
func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}
