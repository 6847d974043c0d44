package newsstore

import (
	"math"
	"strings"
	"time"
)

// Filter narrows search results by metadata fields. A document matches only
// if it satisfies every present field; within a field, multiple values are
// OR-matched. Date bounds are inclusive YYYY-MM-DD.
type Filter struct {
	DateStart    string
	DateEnd      string
	Currencies   []string
	Sources      []string
	Categories   []string
	MinVoteScore *float64 // threshold on |VoteScore|
}

// predicate reports whether a document passes one filter field.
type predicate func(*Document) bool

// predicates builds the AND-reduced matcher list from whichever fields are
// present, with values case-normalized once up front (currencies uppercased,
// sources and categories lowercased).
func (f *Filter) predicates() []predicate {
	if f == nil {
		return nil
	}
	var preds []predicate

	if f.DateStart != "" || f.DateEnd != "" {
		start, okStart := parseDay(f.DateStart)
		end, okEnd := parseDay(f.DateEnd)
		// A present but unparseable bound matches nothing; silently
		// widening it would return documents the caller asked to exclude.
		if (f.DateStart != "" && !okStart) || (f.DateEnd != "" && !okEnd) {
			preds = append(preds, func(*Document) bool { return false })
			return preds
		}
		preds = append(preds, func(d *Document) bool {
			p := d.Metadata.PublishedAt
			if p.IsZero() {
				return false
			}
			if okStart && p.Before(start) {
				return false
			}
			if okEnd && !p.Before(end.Add(24*time.Hour)) {
				return false
			}
			return true
		})
	}

	if len(f.Currencies) > 0 {
		want := upperSet(f.Currencies)
		preds = append(preds, func(d *Document) bool {
			for _, c := range d.Metadata.Currencies {
				if want[strings.ToUpper(c)] {
					return true
				}
			}
			return false
		})
	}

	if len(f.Sources) > 0 {
		want := lowerSet(f.Sources)
		preds = append(preds, func(d *Document) bool {
			return want[strings.ToLower(d.Metadata.Source)] ||
				want[strings.ToLower(d.Metadata.SourceKey)]
		})
	}

	if len(f.Categories) > 0 {
		want := lowerSet(f.Categories)
		preds = append(preds, func(d *Document) bool {
			return want[strings.ToLower(d.Metadata.Category)]
		})
	}

	if f.MinVoteScore != nil {
		min := *f.MinVoteScore
		preds = append(preds, func(d *Document) bool {
			return math.Abs(d.Metadata.VoteScore) >= min
		})
	}

	return preds
}

// Matches reports whether doc satisfies every present filter field.
func (f *Filter) Matches(doc *Document) bool {
	for _, p := range f.predicates() {
		if !p(doc) {
			return false
		}
	}
	return true
}

// matchAll applies a pre-built predicate list.
func matchAll(preds []predicate, doc *Document) bool {
	for _, p := range preds {
		if !p(doc) {
			return false
		}
	}
	return true
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func upperSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	return set
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}
