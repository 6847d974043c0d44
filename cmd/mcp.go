package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/coinwatch/newsrag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing news search, question answering, and timeline tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		svcs, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer svcs.Close()

		mcpserver.Version = Version

		stats, err := svcs.rag.Stats(ctx)
		if err == nil {
			fmt.Fprintf(os.Stderr, "newsrag MCP server started on stdio (documents=%d)\n", stats.Store.Documents)
		}

		srv := mcpserver.NewServer(svcs.rag)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
