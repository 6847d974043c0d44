// Package timeline turns extracted news events into a clustered,
// chronological timeline. Extraction output is untrusted: dates are
// normalized, importance is clamped, and categories are validated before
// anything is assembled.
package timeline

import (
	"sort"
	"time"
)

// Category is the closed set of event categories. Anything the extractor
// invents beyond these maps to CategoryOther.
type Category string

const (
	CategoryAnnouncement Category = "announcement"
	CategoryRegulation   Category = "regulation"
	CategoryMarket       Category = "market"
	CategoryTechnology   Category = "technology"
	CategorySecurity     Category = "security"
	CategoryAdoption     Category = "adoption"
	CategoryOther        Category = "other"
)

var validCategories = map[Category]bool{
	CategoryAnnouncement: true,
	CategoryRegulation:   true,
	CategoryMarket:       true,
	CategoryTechnology:   true,
	CategorySecurity:     true,
	CategoryAdoption:     true,
	CategoryOther:        true,
}

// ParseCategory validates a raw category string.
func ParseCategory(s string) Category {
	c := Category(s)
	if validCategories[c] {
		return c
	}
	return CategoryOther
}

// RawEvent is what the extractor produced, before sanitisation. Sources
// are already resolved to article references by the extractor.
type RawEvent struct {
	Date        string   `json:"date"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Importance  float64  `json:"importance"`
	Cluster     string   `json:"cluster"`
	Sources     []string `json:"sources,omitempty"`
}

// Event is a sanitized timeline entry. Sources point at the news articles
// the event was extracted from.
type Event struct {
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Importance  float64   `json:"importance"`
	Sources     []string  `json:"sources,omitempty"`
	cluster     string
}

// Cluster groups related events under a label. Importance is the maximum
// importance among its members.
type Cluster struct {
	Label      string  `json:"label"`
	Importance float64 `json:"importance"`
	Events     []Event `json:"events"`
}

// Timeline is the assembled result for one topic.
type Timeline struct {
	Topic    string    `json:"topic"`
	Clusters []Cluster `json:"clusters"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Options bound what the timeline includes.
type Options struct {
	Start         time.Time // zero means unbounded
	End           time.Time // zero means unbounded
	MinImportance float64
	MaxEvents     int // 0 means DefaultMaxEvents
}

const (
	// DefaultMaxEvents caps a timeline's size.
	DefaultMaxEvents = 20
	// trivialClusterThreshold is the event count at or below which
	// clustering is skipped in favor of one flat cluster.
	trivialClusterThreshold = 3
	// catchAllLabel collects events the extractor left unclustered.
	catchAllLabel = "Other events"
	// singleClusterLabel is used for trivially small timelines.
	singleClusterLabel = "All events"
)

// sanitize validates one raw event. Events without a parseable date are
// dropped; importance clamps to [0,1]; categories outside the closed set
// become other.
func sanitize(raw RawEvent) (Event, bool) {
	date, err := parseEventDate(raw.Date)
	if err != nil {
		return Event{}, false
	}
	importance := raw.Importance
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	var sources []string
	for _, s := range raw.Sources {
		if s != "" {
			sources = append(sources, s)
		}
	}
	return Event{
		Date:        date,
		Title:       raw.Title,
		Description: raw.Description,
		Category:    ParseCategory(raw.Category),
		Importance:  importance,
		Sources:     sources,
		cluster:     raw.Cluster,
	}, true
}

func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Assemble sanitizes the raw events, filters them to the date window and
// importance floor, caps to the highest-importance MaxEvents re-sorted
// chronologically, and groups them into clusters. Every surviving event
// lands in exactly one cluster.
func Assemble(topic string, raw []RawEvent, opts Options) Timeline {
	maxEvents := opts.MaxEvents
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}

	var events []Event
	for _, r := range raw {
		event, ok := sanitize(r)
		if !ok {
			continue
		}
		if !opts.Start.IsZero() && event.Date.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && event.Date.After(opts.End) {
			continue
		}
		if event.Importance < opts.MinImportance {
			continue
		}
		events = append(events, event)
	}

	// Keep the most important events, then restore chronological order.
	if len(events) > maxEvents {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Importance > events[j].Importance
		})
		events = events[:maxEvents]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})

	tl := Timeline{Topic: topic}
	if len(events) > 0 {
		tl.Start = events[0].Date
		tl.End = events[len(events)-1].Date
	}
	tl.Clusters = clusterEvents(events)
	return tl
}

// clusterEvents groups events by their extractor-assigned cluster label in
// first-appearance order. Unlabeled events form a catch-all cluster at the
// end. Three or fewer events skip clustering entirely.
func clusterEvents(events []Event) []Cluster {
	if len(events) == 0 {
		return nil
	}
	if len(events) <= trivialClusterThreshold {
		return []Cluster{{Label: singleClusterLabel, Importance: maxImportance(events), Events: events}}
	}

	byLabel := make(map[string]int)
	var clusters []Cluster
	var orphans []Event
	for _, event := range events {
		if event.cluster == "" {
			orphans = append(orphans, event)
			continue
		}
		idx, ok := byLabel[event.cluster]
		if !ok {
			idx = len(clusters)
			byLabel[event.cluster] = idx
			clusters = append(clusters, Cluster{Label: event.cluster})
		}
		clusters[idx].Events = append(clusters[idx].Events, event)
	}
	if len(orphans) > 0 {
		clusters = append(clusters, Cluster{Label: catchAllLabel, Events: orphans})
	}
	for i := range clusters {
		clusters[i].Importance = maxImportance(clusters[i].Events)
	}
	return clusters
}

// maxImportance is the cluster importance invariant: the maximum over the
// member events.
func maxImportance(events []Event) float64 {
	var max float64
	for _, e := range events {
		if e.Importance > max {
			max = e.Importance
		}
	}
	return max
}
