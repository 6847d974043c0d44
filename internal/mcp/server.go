// Package mcp exposes the news query service as MCP tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/coinwatch/newsrag/internal/rag"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes news search and timeline tools.
type Server struct {
	service *rag.Service
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server around the query service.
func NewServer(service *rag.Service) *Server {
	s := &Server{service: service}

	s.mcp = server.NewMCPServer(
		"newsrag",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchNewsTool, s.handleSearchNews)
	s.mcp.AddTool(askNewsTool, s.handleAskNews)
	s.mcp.AddTool(buildTimelineTool, s.handleBuildTimeline)
}

// Serve starts the MCP server on stdio. Stdout carries MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
