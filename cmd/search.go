package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coinwatch/newsrag/internal/newsstore"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed news articles",
	Long:  `Runs hybrid semantic + keyword search over the indexed articles and prints the ranked results.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of results (overrides config)")
	searchCmd.Flags().String("from", "", "earliest publication date (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "latest publication date (YYYY-MM-DD)")
	searchCmd.Flags().String("currencies", "", "comma-separated ticker symbols, e.g. BTC,ETH")
	searchCmd.Flags().String("sources", "", "comma-separated source names")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	currencies, _ := cmd.Flags().GetString("currencies")
	sources, _ := cmd.Flags().GetString("sources")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	svcs, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	opts := askOptionsFromConfig(svcs.cfg, "fast")
	if limit > 0 {
		opts.TopK = limit
	}
	opts.Filter = buildFilter(from, to, currencies, sources)

	results, err := svcs.rag.SearchNews(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	printSearchResultsTable(results)
	return nil
}

func buildFilter(from, to, currencies, sources string) *newsstore.Filter {
	if from == "" && to == "" && currencies == "" && sources == "" {
		return nil
	}
	return &newsstore.Filter{
		DateStart:  from,
		DateEnd:    to,
		Currencies: splitList(currencies),
		Sources:    splitList(sources),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type searchResultJSON struct {
	Rank        int     `json:"rank"`
	Score       float64 `json:"score"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"published_at,omitempty"`
	URL         string  `json:"url,omitempty"`
	Snippet     string  `json:"snippet"`
}

func printSearchResultsJSON(results []newsstore.SearchResult) error {
	var out []searchResultJSON
	for i, r := range results {
		entry := searchResultJSON{
			Rank:    i + 1,
			Score:   r.Score,
			Title:   r.Document.Metadata.Title,
			Source:  r.Document.Metadata.Source,
			URL:     r.Document.Metadata.URL,
			Snippet: truncate(r.Document.Content, 200),
		}
		if !r.Document.Metadata.PublishedAt.IsZero() {
			entry.PublishedAt = r.Document.Metadata.PublishedAt.Format("2006-01-02")
		}
		out = append(out, entry)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchResultsTable(results []newsstore.SearchResult) {
	for i, r := range results {
		meta := r.Document.Metadata
		date := "unknown date"
		if !meta.PublishedAt.IsZero() {
			date = meta.PublishedAt.Format("2006-01-02")
		}
		fmt.Printf("%2d. [%.3f] %s\n", i+1, r.Score, meta.Title)
		fmt.Printf("    %s | %s\n", meta.Source, date)
		if meta.URL != "" {
			fmt.Printf("    %s\n", meta.URL)
		}
		fmt.Printf("    %s\n\n", truncate(r.Document.Content, 160))
	}
}
