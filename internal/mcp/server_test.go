package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/newsstore"
	"github.com/coinwatch/newsrag/internal/rag"
)

func newTestService(t *testing.T, seed bool) *rag.Service {
	t.Helper()
	store := newsstore.NewMemoryStore()
	embedder := embeddings.NewFallbackEmbedder(64)
	if seed {
		content := "The SEC approved the spot bitcoin ETF."
		vec, err := embeddings.EmbedOne(context.Background(), embedder, content)
		if err != nil {
			t.Fatalf("embedding: %v", err)
		}
		err = store.Add(context.Background(), newsstore.Document{
			ID:        "d1",
			Content:   content,
			Embedding: vec,
			Metadata: newsstore.Metadata{
				Title:       "Bitcoin ETF approved",
				Source:      "coindesk",
				URL:         "https://example.com/etf",
				PublishedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			},
		})
		if err != nil {
			t.Fatalf("adding doc: %v", err)
		}
	}
	return rag.NewService(rag.Deps{Store: store, Embedder: embedder})
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_news", searchNewsTool, "search_news"},
		{"ask_news", askNewsTool, "ask_news"},
		{"build_timeline", buildTimelineTool, "build_timeline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(newTestService(t, false))
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleSearchNews(t *testing.T) {
	srv := NewServer(newTestService(t, true))
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "The SEC approved the spot bitcoin ETF.",
		}

		result, err := srv.handleSearchNews(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchNews(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("date filter excludes everything", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query":      "The SEC approved the spot bitcoin ETF.",
			"date_start": "2030-01-01",
		}

		result, err := srv.handleSearchNews(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "No articles matched") {
			t.Errorf("text = %q, want no-match message", text)
		}
	})
}

func TestHandleAskNews(t *testing.T) {
	srv := NewServer(newTestService(t, true))
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"query": "The SEC approved the spot bitcoin ETF.",
	}

	result, err := srv.handleAskNews(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Sources:") {
		t.Errorf("text = %q, want sources section", text)
	}
}

func TestHandleBuildTimelineValidation(t *testing.T) {
	srv := NewServer(newTestService(t, false))
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"topic": "bitcoin etf",
		"start": "last tuesday",
	}

	result, err := srv.handleBuildTimeline(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for bad start date")
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatal("result has no text content")
	return ""
}
