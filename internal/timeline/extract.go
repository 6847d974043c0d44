package timeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/coinwatch/newsrag/internal/llm"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

const extractSnippetLen = 500

// Extractor turns ranked news documents into raw events via a
// text-generation provider.
type Extractor struct {
	provider llm.Provider
}

// NewExtractor returns an Extractor backed by the provider.
func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract prompts the provider with the documents and parses its JSON
// output into raw events. Malformed output yields an empty slice, never an
// error: a timeline with no events is a valid business outcome.
func (x *Extractor) Extract(ctx context.Context, topic string, docs []newsstore.Document) ([]RawEvent, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, doc := range docs {
		snippet := doc.Content
		if len(snippet) > extractSnippetLen {
			snippet = snippet[:extractSnippetLen]
		}
		published := "undated"
		if !doc.Metadata.PublishedAt.IsZero() {
			published = doc.Metadata.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "Article %d [%s] %s\n%s\n\n", i+1, published, doc.Metadata.Title, snippet)
	}

	prompt := fmt.Sprintf(`Extract the key events about "%s" from these news articles.

Articles:
%s
For each event provide: date (YYYY-MM-DD), title, description (one sentence),
category (announcement, regulation, market, technology, security, adoption),
importance (0.0-1.0), cluster (a short label grouping related events), and
sources (the numbers of the articles the event comes from).

Respond with JSON only:
{"events": [{"date": "...", "title": "...", "description": "...", "category": "...", "importance": 0.0, "cluster": "...", "sources": [1]}]}`,
		topic, sb.String())

	resp, err := x.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You extract structured event timelines from crypto news."},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   2048,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting events: %w", err)
	}

	var parsed struct {
		Events []struct {
			RawEvent
			Sources []int `json:"sources"`
		} `json:"events"`
	}
	if !llm.UnmarshalResponse(resp.Content, &parsed) {
		log.Printf("event extractor returned unparseable output for topic %q", topic)
		return nil, nil
	}

	events := make([]RawEvent, 0, len(parsed.Events))
	for _, e := range parsed.Events {
		event := e.RawEvent
		event.Sources = resolveSources(e.Sources, docs)
		events = append(events, event)
	}
	return events, nil
}

// resolveSources maps 1-based article numbers from the model back onto the
// documents it was shown. Out-of-range references are dropped.
func resolveSources(refs []int, docs []newsstore.Document) []string {
	var sources []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		if ref < 1 || ref > len(docs) {
			continue
		}
		meta := docs[ref-1].Metadata
		src := meta.URL
		if src == "" {
			src = meta.Title
		}
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}
