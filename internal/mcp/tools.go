package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchNewsTool defines the search_news MCP tool.
var searchNewsTool = mcp.NewTool("search_news",
	mcp.WithDescription("Search crypto news articles with hybrid semantic and keyword retrieval. Returns ranked headlines with sources and dates."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
	mcp.WithString("date_start",
		mcp.Description("Earliest publication date, YYYY-MM-DD inclusive"),
	),
	mcp.WithString("date_end",
		mcp.Description("Latest publication date, YYYY-MM-DD inclusive"),
	),
	mcp.WithString("currencies",
		mcp.Description("Comma-separated ticker symbols to filter by, e.g. BTC,ETH"),
	),
)

// askNewsTool defines the ask_news MCP tool.
var askNewsTool = mcp.NewTool("ask_news",
	mcp.WithDescription("Ask a question about crypto news and get a sourced answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithString("preset",
		mcp.Description("Latency/quality trade-off (default fast)"),
		mcp.Enum("fast", "complete"),
	),
)

// buildTimelineTool defines the build_timeline MCP tool.
var buildTimelineTool = mcp.NewTool("build_timeline",
	mcp.WithDescription("Build a clustered, chronological timeline of events about a topic from the news corpus."),
	mcp.WithString("topic",
		mcp.Required(),
		mcp.Description("The topic to build a timeline for, e.g. 'bitcoin etf'"),
	),
	mcp.WithString("start",
		mcp.Description("Earliest event date, YYYY-MM-DD"),
	),
	mcp.WithString("end",
		mcp.Description("Latest event date, YYYY-MM-DD"),
	),
	mcp.WithNumber("max_events",
		mcp.Description("Maximum number of events (default 20)"),
	),
)
