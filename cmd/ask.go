package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed news",
	Long:  `Retrieves relevant articles, reranks them, and generates a sourced answer. Without an OpenAI API key the answer is an extractive summary.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().String("preset", "fast", "answer preset: fast or complete")
	askCmd.Flags().String("user", "", "user id for personalised ranking")
	askCmd.Flags().Bool("no-cache", false, "bypass the answer cache")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	preset, _ := cmd.Flags().GetString("preset")
	userID, _ := cmd.Flags().GetString("user")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	if preset != "fast" && preset != "complete" {
		return fmt.Errorf("invalid preset %q: must be fast or complete", preset)
	}

	svcs, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	opts := askOptionsFromConfig(svcs.cfg, preset)
	opts.UserID = userID
	if noCache {
		opts.UseCache = false
	}

	answer, err := svcs.rag.Ask(ctx, question, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(answer.Answer)

	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range answer.Sources {
			line := fmt.Sprintf("%d. %s (%s)", i+1, src.Title, src.Source)
			if src.URL != "" {
				line += " " + src.URL
			}
			fmt.Println(line)
		}
	}

	if verbose {
		fmt.Printf("\nSearched %d documents in %s", answer.DocsSearched, answer.ProcessingTime.Round(time.Millisecond))
		if answer.CacheHit {
			fmt.Print(" (cached)")
		}
		fmt.Println()
	}
	return nil
}
