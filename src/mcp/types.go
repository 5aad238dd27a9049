// Package mcp serves the classification cache to LLM clients over the Model
// Context Protocol.
package mcp

// BuildItem is a build as listed by query_builds.
type BuildItem struct {
	ID        string `json:"id"`
	JobName   string `json:"job_name"`
	BuildNum  string `json:"build_num"`
	Result    string `json:"result"`
	Branch    string `json:"branch"`
	Stage     string `json:"stage"`
	Trigger   string `json:"trigger"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`

	// Types of the build's failures, in detection order.
	FailureTypes []string `json:"failure_types"`
}

// QueryResponse is the query_builds result.
type QueryResponse struct {
	Query   string      `json:"query"`
	Total   int         `json:"total"`
	Builds  []BuildItem `json:"builds"`
	Omitted int         `json:"omitted,omitempty"`
}

// GroupItem is one recurring failure in failure_summary.
type GroupItem struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	Count       int    `json:"count"`
	OldestBuild string `json:"oldest_build"`
	NewestBuild string `json:"newest_build"`
	NewestAt    string `json:"newest_at"`
	Histogram   []int  `json:"histogram"`
}

// SummaryResponse is the failure_summary result. Unique failures only occur on
// builds that did not succeed; noise also occurs on successful builds.
type SummaryResponse struct {
	CacheTimestamp string         `json:"cache_timestamp"`
	Builds         int            `json:"builds"`
	Categories     map[string]int `json:"categories"`
	UniqueFailures []GroupItem    `json:"unique_failures"`
	Noise          []GroupItem    `json:"noise"`
}

// FailureItem is one failure of a build in get_build.
type FailureItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
}

// BuildDetail is the get_build result.
type BuildDetail struct {
	BuildItem
	Repo      string        `json:"repo,omitempty"`
	OS        string        `json:"os,omitempty"`
	Hierarchy []string      `json:"hierarchy"`
	Failures  []FailureItem `json:"failures"`
}
