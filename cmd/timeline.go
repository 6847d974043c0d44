package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coinwatch/newsrag/internal/rag"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline [topic]",
	Short: "Build an event timeline for a topic",
	Long:  `Retrieves articles about the topic, extracts dated events using the LLM, and prints them grouped into clusters. Requires an OpenAI API key.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeline,
}

func init() {
	timelineCmd.Flags().String("from", "", "earliest event date (YYYY-MM-DD)")
	timelineCmd.Flags().String("to", "", "latest event date (YYYY-MM-DD)")
	timelineCmd.Flags().Int("max-events", 0, "maximum number of events")
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	topic := args[0]

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	maxEvents, _ := cmd.Flags().GetInt("max-events")

	opts := rag.TimelineOptions{MaxEvents: maxEvents}
	var err error
	if opts.Start, err = parseDateFlag(from); err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	if opts.End, err = parseDateFlag(to); err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	svcs, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	if svcs.provider == nil {
		return fmt.Errorf("timeline extraction requires an OpenAI API key (set OPENAI_API_KEY or openai.api_key)")
	}

	tl, err := svcs.rag.BuildTimeline(ctx, topic, opts)
	if err != nil {
		return fmt.Errorf("building timeline: %w", err)
	}

	if len(tl.Clusters) == 0 {
		fmt.Printf("No events found for %q.\n", topic)
		return nil
	}

	fmt.Printf("Timeline: %s\n", tl.Topic)
	for _, cluster := range tl.Clusters {
		fmt.Printf("\n%s\n", cluster.Label)
		for _, event := range cluster.Events {
			fmt.Printf("  %s  %s [%s]\n", event.Date.Format("2006-01-02"), event.Title, event.Category)
			if event.Description != "" {
				fmt.Printf("            %s\n", truncate(event.Description, 120))
			}
		}
	}
	return nil
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
