package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coinwatch/newsrag/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "newsrag",
	Short: "Hybrid retrieval and question answering over crypto news",
	Long: `newsrag indexes cryptocurrency news articles and answers questions
about them. It combines semantic and keyword search, reranks results by
recency and source credibility, and personalises rankings per user. It
serves a REST API and integrates with AI agents via MCP.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
