// Package lexical scores candidate documents against a query using Okapi
// BM25. Scoring is always restricted to an already-retrieved candidate set,
// never the whole corpus: document frequency and average length are
// computed over the candidates alone, which keeps cost bounded but means
// scores are only comparable within one candidate set.
package lexical

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/coinwatch/newsrag/internal/newsstore"
)

const (
	// DefaultK1 controls term-frequency saturation.
	DefaultK1 = 1.2
	// DefaultB controls document-length normalization.
	DefaultB = 0.75
)

// Tokenize lowercases text, strips punctuation, and discards tokens of
// length two or less.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Rank scores every candidate with BM25 against the query, drops documents
// with no term overlap (score 0), and returns the rest sorted by descending
// score. Candidate order breaks score ties, so repeated calls over the same
// input produce identical output.
func Rank(query string, candidates []newsstore.Document, k1, b float64) []newsstore.SearchResult {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 || len(candidates) == 0 {
		return nil
	}

	// Term frequencies and lengths per candidate.
	termFreqs := make([]map[string]int, len(candidates))
	docLens := make([]int, len(candidates))
	var totalLen int
	for i, doc := range candidates {
		tokens := Tokenize(doc.Metadata.Title + " " + doc.Content)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		termFreqs[i] = tf
		docLens[i] = len(tokens)
		totalLen += len(tokens)
	}
	avgLen := float64(totalLen) / float64(len(candidates))

	// Document frequency per query term, over the candidate set only.
	n := float64(len(candidates))
	idf := make(map[string]float64, len(queryTerms))
	for _, term := range queryTerms {
		if _, done := idf[term]; done {
			continue
		}
		var df float64
		for _, tf := range termFreqs {
			if tf[term] > 0 {
				df++
			}
		}
		idf[term] = math.Log((n-df+0.5)/(df+0.5) + 1)
	}

	var results []newsstore.SearchResult
	for i, doc := range candidates {
		var score float64
		for term, termIDF := range idf {
			tf := float64(termFreqs[i][term])
			if tf == 0 {
				continue
			}
			norm := 1 - b + b*float64(docLens[i])/avgLen
			score += termIDF * tf * (k1 + 1) / (tf + k1*norm)
		}
		if score > 0 {
			results = append(results, newsstore.SearchResult{Document: doc, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
