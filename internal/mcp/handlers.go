package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coinwatch/newsrag/internal/newsstore"
	"github.com/coinwatch/newsrag/internal/rag"
)

// handleSearchNews runs hybrid retrieval and formats the hits as text.
func (s *Server) handleSearchNews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	opts := rag.FastOptions()
	if limit := request.GetInt("limit", 0); limit > 0 {
		opts.TopK = limit
	}

	filter := &newsstore.Filter{
		DateStart: request.GetString("date_start", ""),
		DateEnd:   request.GetString("date_end", ""),
	}
	if currencies := request.GetString("currencies", ""); currencies != "" {
		for _, c := range strings.Split(currencies, ",") {
			if c = strings.TrimSpace(c); c != "" {
				filter.Currencies = append(filter.Currencies, c)
			}
		}
	}
	if filter.DateStart != "" || filter.DateEnd != "" || len(filter.Currencies) > 0 {
		opts.Filter = filter
	}

	results, err := s.service.SearchNews(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No articles matched. Try a broader query or a wider date range."), nil
	}

	var sb strings.Builder
	for i, r := range results {
		published := "undated"
		if !r.Document.Metadata.PublishedAt.IsZero() {
			published = r.Document.Metadata.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "%d. %s (%s, %s)\n   %s\n", i+1, r.Document.Metadata.Title,
			r.Document.Metadata.Source, published, r.Document.Metadata.URL)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleAskNews answers a question with sources appended.
func (s *Server) handleAskNews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	opts := rag.FastOptions()
	if request.GetString("preset", "fast") == "complete" {
		opts = rag.CompleteOptions()
	}

	answer, err := s.service.Ask(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(answer.Answer)
	if len(answer.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, src := range answer.Sources {
			fmt.Fprintf(&sb, "%d. %s (%s) %s\n", i+1, src.Title, src.Source, src.URL)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleBuildTimeline assembles and formats a topic timeline.
func (s *Server) handleBuildTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: topic"), nil
	}

	var opts rag.TimelineOptions
	if start := request.GetString("start", ""); start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return mcp.NewToolResultError("invalid start date, want YYYY-MM-DD"), nil
		}
		opts.Start = t
	}
	if end := request.GetString("end", ""); end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return mcp.NewToolResultError("invalid end date, want YYYY-MM-DD"), nil
		}
		opts.End = t
	}
	opts.MaxEvents = request.GetInt("max_events", 0)

	tl, err := s.service.BuildTimeline(ctx, topic, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("timeline failed: %v", err)), nil
	}
	if len(tl.Clusters) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No events found for %q in the requested window.", topic)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Timeline: %s\n\n", topic)
	for _, cluster := range tl.Clusters {
		fmt.Fprintf(&sb, "## %s\n", cluster.Label)
		for _, event := range cluster.Events {
			fmt.Fprintf(&sb, "- %s [%s] %s: %s\n", event.Date.Format("2006-01-02"),
				event.Category, event.Title, event.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
