// Package personalize keeps per-user preference profiles, infers interests
// from query history, and re-ranks retrieval results with interest, source,
// and muted-topic adjustments. Profiles live in memory; an optional
// database mirror survives restarts.
package personalize

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coinwatch/newsrag/internal/db"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

// Config tunes inference and ranking. Zero values fall back to defaults.
type Config struct {
	MaxHistorySize       int
	MaxInferredInterests int
	InterestDecayPerDay  float64
	MinInterestWeight    float64
	InterestBoost        float64
	SourceBoost          float64
	MutedPenalty         float64
}

// DefaultConfig matches the behaviour users see out of the box.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize:       200,
		MaxInferredInterests: 50,
		InterestDecayPerDay:  0.02,
		MinInterestWeight:    0.1,
		InterestBoost:        1.3,
		SourceBoost:          1.2,
		MutedPenalty:         0.5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxHistorySize <= 0 {
		c.MaxHistorySize = def.MaxHistorySize
	}
	if c.MaxInferredInterests <= 0 {
		c.MaxInferredInterests = def.MaxInferredInterests
	}
	if c.InterestDecayPerDay <= 0 {
		c.InterestDecayPerDay = def.InterestDecayPerDay
	}
	if c.MinInterestWeight <= 0 {
		c.MinInterestWeight = def.MinInterestWeight
	}
	if c.InterestBoost <= 0 {
		c.InterestBoost = def.InterestBoost
	}
	if c.SourceBoost <= 0 {
		c.SourceBoost = def.SourceBoost
	}
	if c.MutedPenalty <= 0 {
		c.MutedPenalty = def.MutedPenalty
	}
	return c
}

// inferredMatchThreshold is the minimum weight an inferred interest needs
// before it influences ranking.
const inferredMatchThreshold = 0.3

// maxStoredQueryLen truncates recorded query text.
const maxStoredQueryLen = 500

// Adjustments reports how many documents each signal touched in one
// PersonalizeRanking call.
type Adjustments struct {
	InterestBoosted int `json:"interestBoosted"`
	SourceBoosted   int `json:"sourceBoosted"`
	MutedPenalized  int `json:"mutedPenalized"`
}

// Engine manages profiles. Safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	cfg      Config
	database *db.DB // nil disables persistence
	now      func() time.Time
}

// NewEngine returns an in-memory engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		profiles: make(map[string]*Profile),
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// NewEngineWithDB returns an engine that mirrors every profile change to
// the database and reloads existing profiles on start.
func NewEngineWithDB(ctx context.Context, cfg Config, database *db.DB) (*Engine, error) {
	e := NewEngine(cfg)
	e.database = database

	stored, err := database.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for userID, raw := range stored {
		var profile Profile
		if err := json.Unmarshal(raw, &profile); err != nil {
			log.Printf("skipping corrupt profile for %s: %v", userID, err)
			continue
		}
		e.profiles[userID] = &profile
	}
	return e, nil
}

func (e *Engine) getOrCreateLocked(userID string) *Profile {
	profile, ok := e.profiles[userID]
	if !ok {
		now := e.now()
		profile = &Profile{
			UserID:       userID,
			Preferences:  defaultPreferences(),
			CreatedAt:    now,
			LastActiveAt: now,
		}
		e.profiles[userID] = profile
	}
	return profile
}

// persistLocked mirrors the profile to the database if one is attached.
// Persistence failures are logged, never surfaced: the in-memory profile
// stays authoritative.
func (e *Engine) persistLocked(profile *Profile) {
	if e.database == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		log.Printf("marshaling profile %s: %v", profile.UserID, err)
		return
	}
	if err := e.database.SaveProfile(context.Background(), profile.UserID, raw); err != nil {
		log.Printf("persisting profile %s: %v", profile.UserID, err)
	}
}

// RecordQuery stores the query in history (unless privacy mode is on),
// infers topics from it, and runs the interest decay pass. Creates the
// profile on first use.
func (e *Engine) RecordQuery(userID, query string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := e.getOrCreateLocked(userID)
	now := e.now()
	profile.LastActiveAt = now

	topics := ExtractTopics(query)

	// Interests derive from topics, not raw text, so inference runs in
	// privacy mode too. Only the verbatim query stays out of history.
	if !profile.PrivacyMode {
		stored := query
		if len(stored) > maxStoredQueryLen {
			stored = stored[:maxStoredQueryLen]
		}
		profile.QueryHistory.Push(HistoryEntry{
			Query:     stored,
			Timestamp: now,
			Topics:    topics,
		}, e.cfg.MaxHistorySize)
	}

	for _, topic := range topics {
		e.bumpInterestLocked(profile, topic, now)
	}
	e.decayInterestsLocked(profile, now)
	e.persistLocked(profile)
}

func (e *Engine) bumpInterestLocked(profile *Profile, topic string, now time.Time) {
	for i := range profile.InferredInterests {
		if strings.EqualFold(profile.InferredInterests[i].Topic, topic) {
			w := profile.InferredInterests[i].Weight + 0.1
			if w > 1 {
				w = 1
			}
			profile.InferredInterests[i].Weight = w
			profile.InferredInterests[i].SourceCount++
			profile.InferredInterests[i].LastSeen = now
			return
		}
	}
	profile.InferredInterests = append(profile.InferredInterests, InferredInterest{
		Topic:       topic,
		Weight:      0.3,
		SourceCount: 1,
		LastSeen:    now,
	})
	if len(profile.InferredInterests) > e.cfg.MaxInferredInterests {
		sort.SliceStable(profile.InferredInterests, func(a, b int) bool {
			return profile.InferredInterests[a].Weight > profile.InferredInterests[b].Weight
		})
		profile.InferredInterests = profile.InferredInterests[:e.cfg.MaxInferredInterests]
	}
}

// decayInterestsLocked reduces each interest by daysSinceLastSeen times
// the decay rate and drops entries below the minimum weight.
func (e *Engine) decayInterestsLocked(profile *Profile, now time.Time) {
	kept := profile.InferredInterests[:0]
	for _, interest := range profile.InferredInterests {
		days := now.Sub(interest.LastSeen).Hours() / 24
		if days > 0 {
			interest.Weight -= days * e.cfg.InterestDecayPerDay
			if interest.Weight < 0 {
				interest.Weight = 0
			}
		}
		if interest.Weight >= e.cfg.MinInterestWeight {
			kept = append(kept, interest)
		}
	}
	profile.InferredInterests = kept
}

// PersonalizeRanking re-scores results for the user and returns a new
// descending-sorted slice plus adjustment counts. The input is never
// modified. Unknown users pass through unchanged.
func (e *Engine) PersonalizeRanking(userID string, results []newsstore.SearchResult) ([]newsstore.SearchResult, Adjustments) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]newsstore.SearchResult, len(results))
	copy(out, results)

	profile, ok := e.profiles[userID]
	if !ok {
		return out, Adjustments{}
	}

	interests := make(map[string]bool)
	for _, i := range profile.Preferences.Interests {
		interests[strings.ToLower(i)] = true
	}
	for _, i := range profile.InferredInterests {
		if i.Weight >= inferredMatchThreshold {
			interests[strings.ToLower(i.Topic)] = true
		}
	}
	sources := make(map[string]bool)
	for _, s := range profile.Preferences.Sources {
		sources[strings.ToLower(s)] = true
	}
	muted := make(map[string]bool)
	for _, m := range profile.Preferences.MutedTopics {
		muted[strings.ToLower(m)] = true
	}

	var adj Adjustments
	for i := range out {
		doc := out[i].Document
		text := strings.ToLower(doc.Metadata.Title + " " + doc.Content)

		// Each signal fires at most once per document.
		for interest := range interests {
			if strings.Contains(text, interest) {
				out[i].Score *= e.cfg.InterestBoost
				adj.InterestBoosted++
				break
			}
		}
		if sources[strings.ToLower(doc.Metadata.Source)] {
			out[i].Score *= e.cfg.SourceBoost
			adj.SourceBoosted++
		}
		for topic := range muted {
			if strings.Contains(text, topic) {
				out[i].Score *= e.cfg.MutedPenalty
				adj.MutedPenalized++
				break
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	return out, adj
}

// UpdatePreferences merges the non-nil fields into the user's explicit
// preferences, creating the profile if needed.
func (e *Engine) UpdatePreferences(userID string, update PreferenceUpdate) *Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := e.getOrCreateLocked(userID)
	profile.LastActiveAt = e.now()
	if update.Interests != nil {
		profile.Preferences.Interests = append([]string(nil), (*update.Interests)...)
	}
	if update.Sources != nil {
		profile.Preferences.Sources = append([]string(nil), (*update.Sources)...)
	}
	if update.ReadingLevel != nil {
		profile.Preferences.ReadingLevel = *update.ReadingLevel
	}
	if update.ResponseStyle != nil {
		profile.Preferences.ResponseStyle = *update.ResponseStyle
	}
	if update.Languages != nil {
		profile.Preferences.Languages = append([]string(nil), (*update.Languages)...)
	}
	if update.MutedTopics != nil {
		profile.Preferences.MutedTopics = append([]string(nil), (*update.MutedTopics)...)
	}
	e.persistLocked(profile)
	return profile.clone()
}

// SetPrivacyMode toggles privacy mode. Enabling clears stored history and
// stops future storage; interest inference continues either way.
func (e *Engine) SetPrivacyMode(userID string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := e.getOrCreateLocked(userID)
	profile.PrivacyMode = enabled
	if enabled {
		profile.QueryHistory = nil
	}
	e.persistLocked(profile)
}

// ExportUserData returns a deep copy of the full profile, or nil for
// unknown users.
func (e *Engine) ExportUserData(userID string) *Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	profile, ok := e.profiles[userID]
	if !ok {
		return nil
	}
	return profile.clone()
}

// DeleteUser irreversibly removes all data for the user, memory and
// database both, and reports whether a profile existed.
func (e *Engine) DeleteUser(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, existed := e.profiles[userID]
	delete(e.profiles, userID)
	if e.database != nil {
		if _, err := e.database.DeleteProfile(context.Background(), userID); err != nil {
			log.Printf("deleting stored profile %s: %v", userID, err)
		}
	}
	return existed
}

// SystemPromptModifier builds prompt guidance from the user's reading
// level, response style, and strongest interests. Empty for unknown users.
func (e *Engine) SystemPromptModifier(userID string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	profile, ok := e.profiles[userID]
	if !ok {
		return ""
	}

	var parts []string
	switch profile.Preferences.ReadingLevel {
	case LevelBeginner:
		parts = append(parts, "Explain concepts simply, avoid jargon, use analogies.")
	case LevelExpert:
		parts = append(parts, "Use technical language, assume deep crypto knowledge, be concise.")
	default:
		parts = append(parts, "Balance clarity with technical accuracy.")
	}
	switch profile.Preferences.ResponseStyle {
	case StyleConcise:
		parts = append(parts, "Keep answers brief and to the point. Bullet points when possible.")
	case StyleTechnical:
		parts = append(parts, "Include technical details, metrics, and data points.")
	case StyleCasual:
		parts = append(parts, "Use a conversational, friendly tone.")
	default:
		parts = append(parts, "Provide thorough analysis with examples.")
	}

	interests := append([]string(nil), profile.Preferences.Interests...)
	for _, i := range profile.InferredInterests {
		if i.Weight >= 0.5 {
			interests = append(interests, i.Topic)
		}
	}
	if len(interests) > 10 {
		interests = interests[:10]
	}
	if len(interests) > 0 {
		parts = append(parts, "The user is interested in: "+strings.Join(interests, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// SourceWeights returns the user's preferred sources mapped to the source
// boost, lowercased, for use at retrieval time.
func (e *Engine) SourceWeights(userID string) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	weights := make(map[string]float64)
	profile, ok := e.profiles[userID]
	if !ok {
		return weights
	}
	for _, source := range profile.Preferences.Sources {
		weights[strings.ToLower(source)] = e.cfg.SourceBoost
	}
	return weights
}

// UserStats returns a profile summary, or nil for unknown users.
func (e *Engine) UserStats(userID string) *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	profile, ok := e.profiles[userID]
	if !ok {
		return nil
	}
	return &Stats{
		Preferences:       profile.Preferences.clone(),
		InferredInterests: append([]InferredInterest(nil), profile.InferredInterests...),
		QueryCount:        len(profile.QueryHistory),
		MemberSince:       profile.CreatedAt,
		LastActive:        profile.LastActiveAt,
		PrivacyMode:       profile.PrivacyMode,
	}
}

// TotalUsers reports how many profiles exist.
func (e *Engine) TotalUsers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.profiles)
}

// Reset drops every in-memory profile. The database mirror is untouched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles = make(map[string]*Profile)
}
