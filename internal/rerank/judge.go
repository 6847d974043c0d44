package rerank

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/coinwatch/newsrag/internal/llm"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

const judgeSnippetLen = 300

// judgeVerdict is the JSON shape the relevance prompt asks for.
type judgeVerdict struct {
	Scores []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"scores"`
}

// applyJudge asks the provider to score each candidate's relevance to the
// query in [0,1] and merges the verdict back multiplicatively. Candidates
// the verdict omits keep their score. Any failure leaves the list
// untouched.
func (r *Reranker) applyJudge(ctx context.Context, query string, results []newsstore.SearchResult) []newsstore.SearchResult {
	var sb strings.Builder
	for _, res := range results {
		snippet := res.Document.Content
		if len(snippet) > judgeSnippetLen {
			snippet = snippet[:judgeSnippetLen]
		}
		fmt.Fprintf(&sb, "id: %s\ntitle: %s\n%s\n\n", res.Document.ID, res.Document.Metadata.Title, snippet)
	}

	prompt := fmt.Sprintf(`Score each news article's relevance to the query on a 0.0-1.0 scale.

Query: %s

Articles:
%s
Respond with JSON only: {"scores": [{"id": "...", "score": 0.0}]}`, query, sb.String())

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You judge the relevance of crypto news articles to search queries."},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		log.Printf("relevance judge failed, keeping original order: %v", err)
		return results
	}

	var verdict judgeVerdict
	if !llm.UnmarshalResponse(resp.Content, &verdict) {
		log.Printf("relevance judge returned unparseable output, keeping original order")
		return results
	}

	scores := make(map[string]float64, len(verdict.Scores))
	for _, s := range verdict.Scores {
		if s.Score < 0 {
			s.Score = 0
		}
		if s.Score > 1 {
			s.Score = 1
		}
		scores[s.ID] = s.Score
	}

	for i := range results {
		if judged, ok := scores[results[i].Document.ID]; ok {
			results[i].Score *= judged
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
