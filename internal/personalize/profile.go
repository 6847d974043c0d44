package personalize

import "time"

// ReadingLevel selects how much background an answer should assume.
type ReadingLevel string

const (
	LevelBeginner     ReadingLevel = "beginner"
	LevelIntermediate ReadingLevel = "intermediate"
	LevelExpert       ReadingLevel = "expert"
)

// ResponseStyle selects the tone and depth of generated answers.
type ResponseStyle string

const (
	StyleConcise   ResponseStyle = "concise"
	StyleDetailed  ResponseStyle = "detailed"
	StyleTechnical ResponseStyle = "technical"
	StyleCasual    ResponseStyle = "casual"
)

// Preferences are the explicit, user-set parts of a profile.
type Preferences struct {
	Interests     []string      `json:"interests"`
	Sources       []string      `json:"sources"`
	ReadingLevel  ReadingLevel  `json:"readingLevel"`
	ResponseStyle ResponseStyle `json:"responseStyle"`
	Languages     []string      `json:"languages"`
	MutedTopics   []string      `json:"mutedTopics"`
}

// PreferenceUpdate carries a partial preference change. Nil fields are
// left untouched.
type PreferenceUpdate struct {
	Interests     *[]string      `json:"interests,omitempty"`
	Sources       *[]string      `json:"sources,omitempty"`
	ReadingLevel  *ReadingLevel  `json:"readingLevel,omitempty"`
	ResponseStyle *ResponseStyle `json:"responseStyle,omitempty"`
	Languages     *[]string      `json:"languages,omitempty"`
	MutedTopics   *[]string      `json:"mutedTopics,omitempty"`
}

// InferredInterest is a topic learned from query history.
type InferredInterest struct {
	Topic       string    `json:"topic"`
	Weight      float64   `json:"weight"`
	SourceCount int       `json:"sourceCount"`
	LastSeen    time.Time `json:"lastSeen"`
}

// HistoryEntry is one recorded query. Kept only outside privacy mode.
type HistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Topics    []string  `json:"topics"`
}

// History is a bounded FIFO of query records. Push is the only mutation
// point, so the capacity invariant holds structurally.
type History []HistoryEntry

// Push appends the entry and evicts the oldest entries beyond capacity.
func (h *History) Push(entry HistoryEntry, capacity int) {
	*h = append(*h, entry)
	if excess := len(*h) - capacity; excess > 0 {
		*h = append(History(nil), (*h)[excess:]...)
	}
}

// Profile is the full per-user personalisation state.
type Profile struct {
	UserID            string             `json:"userId"`
	Preferences       Preferences        `json:"preferences"`
	InferredInterests []InferredInterest `json:"inferredInterests"`
	QueryHistory      History            `json:"queryHistory"`
	CreatedAt         time.Time          `json:"createdAt"`
	LastActiveAt      time.Time          `json:"lastActiveAt"`
	PrivacyMode       bool               `json:"privacyMode"`
}

// Stats is the read-only summary returned by UserStats.
type Stats struct {
	Preferences       Preferences        `json:"preferences"`
	InferredInterests []InferredInterest `json:"inferredInterests"`
	QueryCount        int                `json:"queryCount"`
	MemberSince       time.Time          `json:"memberSince"`
	LastActive        time.Time          `json:"lastActive"`
	PrivacyMode       bool               `json:"privacyMode"`
}

func defaultPreferences() Preferences {
	return Preferences{
		ReadingLevel:  LevelIntermediate,
		ResponseStyle: StyleDetailed,
		Languages:     []string{"en"},
	}
}

// clone deep-copies the profile so exports never alias engine state.
func (p *Profile) clone() *Profile {
	out := *p
	out.Preferences = p.Preferences.clone()
	out.InferredInterests = append([]InferredInterest(nil), p.InferredInterests...)
	out.QueryHistory = make(History, len(p.QueryHistory))
	for i, h := range p.QueryHistory {
		out.QueryHistory[i] = h
		out.QueryHistory[i].Topics = append([]string(nil), h.Topics...)
	}
	return &out
}

func (p Preferences) clone() Preferences {
	p.Interests = append([]string(nil), p.Interests...)
	p.Sources = append([]string(nil), p.Sources...)
	p.Languages = append([]string(nil), p.Languages...)
	p.MutedTopics = append([]string(nil), p.MutedTopics...)
	return p
}
