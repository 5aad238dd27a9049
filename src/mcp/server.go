package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"buildtriage/src/contracts"
	"buildtriage/src/patterns"
	"buildtriage/src/ranking"
	"buildtriage/src/store"
)

// Default result limits.
const (
	DefaultQueryLimit  = 25
	DefaultUniqueLimit = 15
	DefaultNoiseLimit  = 5
)

// Server is the MCP server over a classification cache.
type Server struct {
	mcpServer *server.MCPServer
	docs      *DocumentCache
	clock     clock.Clock
}

// NewServer creates a server reading st. Loaded documents are reused for ttl.
func NewServer(st store.Store, ttl time.Duration) *Server {
	s := server.NewMCPServer(
		"build-triage",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		docs:      NewDocumentCache(st, ttl),
		clock:     clock.New(),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	queryTool := mcp.NewTool("query_builds",
		mcp.WithDescription("List cached builds whose attribute contains a value, newest first. Fields: "+
			fmt.Sprint(ranking.QueryFields())+"."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("field=value, e.g. job_name=newton or result=FAILURE"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max builds returned (default: %d)", DefaultQueryLimit)),
		),
	)

	summaryTool := mcp.NewTool("failure_summary",
		mcp.WithDescription("Recurring failures across all cached builds, most frequent first. Unique failures only occur on builds that did not succeed and are the likely root causes; noise also occurs on successful builds."),
		mcp.WithString("category",
			mcp.Description("Only include failures of this category, e.g. \"Remote Dependency\""),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max unique failures (default: %d)", DefaultUniqueLimit)),
		),
	)

	buildTool := mcp.NewTool("get_build",
		mcp.WithDescription("Full record of one build: trigger hierarchy and every classified failure with its detail."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Build id, <job>_<number>"),
		),
	)

	s.mcpServer.AddTool(queryTool, s.handleQueryBuilds)
	s.mcpServer.AddTool(summaryTool, s.handleFailureSummary)
	s.mcpServer.AddTool(buildTool, s.handleGetBuild)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleQueryBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr := request.GetString("query", "")
	field, value, err := ranking.ParseQuery(expr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", DefaultQueryLimit)

	doc, err := s.docs.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	builds, err := ranking.Query(doc, field, value)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := QueryResponse{Query: expr, Total: len(builds), Builds: []BuildItem{}}
	for i, b := range builds {
		if limit > 0 && i >= limit {
			resp.Omitted = len(builds) - limit
			break
		}
		resp.Builds = append(resp.Builds, toBuildItem(doc, b))
	}
	return jsonResult(resp)
}

func (s *Server) handleFailureSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := contracts.Category(request.GetString("category", ""))
	if category != "" && !category.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category %q (expected one of %v)", category, contracts.Categories)), nil
	}
	limit := request.GetInt("limit", DefaultUniqueLimit)

	doc, err := s.docs.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	groups := ranking.GroupFailures(doc, 0, s.clock.Now())
	if category != "" {
		var filtered []*ranking.Group
		for _, g := range groups {
			if g.Category == category {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}
	unique, noise := ranking.Split(groups)

	resp := SummaryResponse{
		CacheTimestamp: doc.Timestamp.Format(time.RFC3339),
		Builds:         len(doc.Builds),
		Categories:     make(map[string]int),
		UniqueFailures: toGroupItems(unique, limit),
		Noise:          toGroupItems(noise, DefaultNoiseLimit),
	}
	for _, cc := range ranking.CategoryCounts(groups) {
		resp.Categories[string(cc.Category)] = cc.Count
	}
	return jsonResult(resp)
}

func (s *Server) handleGetBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	doc, err := s.docs.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, ok := doc.Builds[id]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("build not found: %s", id)), nil
	}

	detail := BuildDetail{
		BuildItem: toBuildItem(doc, b),
		Repo:      b.Repo,
		OS:        b.OS,
		Hierarchy: make([]string, 0, len(b.BuildHierarchy)),
		Failures:  []FailureItem{},
	}
	for _, c := range b.BuildHierarchy {
		detail.Hierarchy = append(detail.Hierarchy, causeLabel(c))
	}
	for _, f := range doc.FailuresOf(b) {
		detail.Failures = append(detail.Failures, FailureItem{
			ID:          f.ID,
			Type:        f.Type,
			Category:    string(f.Category),
			Description: f.Description,
			Detail:      patterns.Normalize(f.Detail(), patterns.MaskPresentation),
		})
	}
	return jsonResult(detail)
}

func toBuildItem(doc *store.Document, b *contracts.Build) BuildItem {
	item := BuildItem{
		ID:           b.ID,
		JobName:      b.JobName,
		BuildNum:     b.BuildNum,
		Result:       string(b.Result),
		Branch:       b.Branch,
		Stage:        string(b.Stage),
		Trigger:      string(b.Trigger),
		Timestamp:    b.Timestamp.Format(time.RFC3339),
		FailureTypes: []string{},
	}
	if n := len(b.BuildHierarchy); n > 0 {
		item.URL = b.BuildHierarchy[n-1].URL
	}
	for _, f := range doc.FailuresOf(b) {
		item.FailureTypes = append(item.FailureTypes, f.Type)
	}
	return item
}

func toGroupItems(groups []*ranking.Group, limit int) []GroupItem {
	items := []GroupItem{}
	for i, g := range groups {
		if limit > 0 && i >= limit {
			break
		}
		items = append(items, GroupItem{
			Key:         g.Key,
			Type:        g.Type,
			Category:    string(g.Category),
			Description: g.Description,
			Detail:      patterns.Normalize(g.Detail, patterns.MaskPresentation),
			Count:       g.Count,
			OldestBuild: g.Oldest.ID,
			NewestBuild: g.Newest.ID,
			NewestAt:    g.Newest.Timestamp.Format(time.RFC3339),
			Histogram:   g.Histogram,
		})
	}
	return items
}

func causeLabel(c contracts.Cause) string {
	label := c.Name
	if c.BuildNum != "" {
		label += " #" + c.BuildNum
	}
	if c.URL != "" && c.URL != "#" {
		label += " (" + c.URL + ")"
	}
	return label
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
