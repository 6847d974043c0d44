package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

var importCmd = &cobra.Command{
	Use:   "import [glob...]",
	Short: "Import news articles from JSON files",
	Long: `Reads JSON article files matched by the given glob patterns (doublestar
syntax, e.g. 'data/**/*.json'), embeds their contents in paced batches, and
adds them to the document store. Each file holds either a single article
object or an array of them. Articles without an id are assigned one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Int("batch-size", 0, "texts per embedding request")
	rootCmd.AddCommand(importCmd)
}

// importArticle is the on-disk article shape.
type importArticle struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	SourceKey   string   `json:"source_key"`
	Category    string   `json:"category"`
	Currencies  []string `json:"currencies"`
	PublishedAt string   `json:"published_at"`
	VotesUp     int      `json:"votes_up"`
	VotesDown   int      `json:"votes_down"`
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	articles, err := readArticles(args)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No articles found.")
		return nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Read %d articles\n", len(articles))
	}

	svcs, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	docs := make([]newsstore.Document, 0, len(articles))
	dropped := 0
	for _, a := range articles {
		doc, err := toDocument(a)
		if err != nil {
			dropped++
			if verbose {
				fmt.Fprintf(os.Stderr, "Warning: skipping article %q: %v\n", a.Title, err)
			}
			continue
		}
		docs = append(docs, doc)
	}

	batchOpts := embeddings.DefaultBatchOptions()
	if batchSize > 0 {
		batchOpts.BatchSize = batchSize
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetDescription("Embedding articles"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	// Embed chunk by chunk so the bar tracks real provider progress.
	failed := 0
	for start := 0; start < len(docs); start += batchOpts.BatchSize {
		end := start + batchOpts.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		texts := make([]string, len(chunk))
		for i, d := range chunk {
			texts[i] = d.Metadata.Title + "\n\n" + d.Content
		}

		result, err := embeddings.EmbedAll(ctx, svcs.embedder, texts, batchOpts)
		if err != nil {
			return fmt.Errorf("embedding articles: %w", err)
		}
		for i, vec := range result.Embeddings {
			chunk[i].Embedding = vec
		}
		failed += len(result.Failed)
		_ = bar.Add(len(chunk))
	}
	_ = bar.Finish()

	added, skipped, err := svcs.store.AddBatch(ctx, docs)
	if err != nil {
		return fmt.Errorf("storing articles: %w", err)
	}

	fmt.Println("Import complete!")
	fmt.Printf("  Articles added:   %d\n", added)
	fmt.Printf("  Articles skipped: %d\n", skipped+dropped)
	if failed > 0 {
		fmt.Printf("  Embedding failures: %d\n", failed)
	}
	return nil
}

// readArticles expands each glob pattern and decodes every matched file.
func readArticles(patterns []string) ([]importArticle, error) {
	var articles []importArticle
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			decoded, err := decodeArticles(data)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			articles = append(articles, decoded...)
		}
	}
	return articles, nil
}

// decodeArticles accepts either an array of articles or a single object.
func decodeArticles(data []byte) ([]importArticle, error) {
	var many []importArticle
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one importArticle
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []importArticle{one}, nil
}

func toDocument(a importArticle) (newsstore.Document, error) {
	if a.Content == "" {
		return newsstore.Document{}, fmt.Errorf("empty content")
	}

	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	var published time.Time
	if a.PublishedAt != "" {
		var err error
		published, err = time.Parse("2006-01-02", a.PublishedAt)
		if err != nil {
			published, err = time.Parse(time.RFC3339, a.PublishedAt)
			if err != nil {
				return newsstore.Document{}, fmt.Errorf("unparseable published_at %q", a.PublishedAt)
			}
		}
	}

	return newsstore.Document{
		ID:      id,
		Content: a.Content,
		Metadata: newsstore.Metadata{
			Title:       a.Title,
			PublishedAt: published,
			URL:         a.URL,
			Source:      a.Source,
			SourceKey:   a.SourceKey,
			Category:    a.Category,
			Currencies:  a.Currencies,
			VoteUp:      a.VotesUp,
			VoteDown:    a.VotesDown,
			VoteScore:   newsstore.ComputeVoteScore(a.VotesUp, a.VotesDown, 1),
		},
	}, nil
}
