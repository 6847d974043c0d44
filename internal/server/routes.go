package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coinwatch/newsrag/internal/hybrid"
	"github.com/coinwatch/newsrag/internal/newsstore"
	"github.com/coinwatch/newsrag/internal/personalize"
	"github.com/coinwatch/newsrag/internal/rag"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Post("/api/search", s.searchHandler())
	r.Post("/api/ask", s.askHandler())
	r.Post("/api/timeline", s.timelineHandler())
	r.Get("/api/stats", s.statsHandler())

	r.Route("/api/users/{id}", func(r chi.Router) {
		r.Get("/", s.userStatsHandler())
		r.Delete("/", s.deleteUserHandler())
		r.Put("/preferences", s.preferencesHandler())
		r.Put("/privacy", s.privacyHandler())
		r.Get("/export", s.exportHandler())
	})
}

// filterRequest is the wire shape of a search filter.
type filterRequest struct {
	DateStart    string   `json:"dateStart"`
	DateEnd      string   `json:"dateEnd"`
	Currencies   []string `json:"currencies"`
	Sources      []string `json:"sources"`
	Categories   []string `json:"categories"`
	MinVoteScore *float64 `json:"minVoteScore"`
}

func (f *filterRequest) toFilter() *newsstore.Filter {
	if f == nil {
		return nil
	}
	return &newsstore.Filter{
		DateStart:    f.DateStart,
		DateEnd:      f.DateEnd,
		Currencies:   f.Currencies,
		Sources:      f.Sources,
		Categories:   f.Categories,
		MinVoteScore: f.MinVoteScore,
	}
}

type searchRequest struct {
	Query     string         `json:"query"`
	TopK      int            `json:"topK"`
	Threshold float64        `json:"threshold"`
	Fusion    string         `json:"fusion"`
	Expand    bool           `json:"expand"`
	UserID    string         `json:"userId"`
	Rerank    bool           `json:"rerank"`
	Filter    *filterRequest `json:"filter"`
}

func (req *searchRequest) toOptions() rag.AskOptions {
	opts := rag.FastOptions()
	opts.UserID = req.UserID
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	opts.Filter = req.Filter.toFilter()
	opts.SimilarityThreshold = req.Threshold
	if req.Fusion == "rrf" {
		opts.Fusion = hybrid.FusionRRF
	}
	opts.ExpandQuery = req.Expand
	opts.UseRerank = req.Rerank
	return opts
}

type searchResult struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"publishedAt"`
	Currencies  []string `json:"currencies,omitempty"`
	VoteScore   float64  `json:"voteScore"`
	Score       float64  `json:"score"`
}

func (s *Server) searchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		results, err := s.service.SearchNews(r.Context(), req.Query, req.toOptions())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]searchResult, len(results))
		for i, res := range results {
			var published string
			if !res.Document.Metadata.PublishedAt.IsZero() {
				published = res.Document.Metadata.PublishedAt.Format(time.RFC3339)
			}
			out[i] = searchResult{
				ID:          res.Document.ID,
				Title:       res.Document.Metadata.Title,
				URL:         res.Document.Metadata.URL,
				Source:      res.Document.Metadata.Source,
				PublishedAt: published,
				Currencies:  res.Document.Metadata.Currencies,
				VoteScore:   res.Document.Metadata.VoteScore,
				Score:       res.Score,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type askRequest struct {
	searchRequest
	Preset   string `json:"preset"` // "fast" (default) or "complete"
	UseCache *bool  `json:"useCache"`
}

func (s *Server) askHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		var opts rag.AskOptions
		if req.Preset == "complete" {
			opts = rag.CompleteOptions()
		} else {
			opts = rag.FastOptions()
		}
		opts.UserID = req.UserID
		if req.TopK > 0 {
			opts.TopK = req.TopK
		}
		opts.Filter = req.Filter.toFilter()
		opts.SimilarityThreshold = req.Threshold
		if req.Fusion == "rrf" {
			opts.Fusion = hybrid.FusionRRF
		}
		if req.UseCache != nil {
			opts.UseCache = *req.UseCache
		}

		answer, err := s.service.Ask(r.Context(), req.Query, opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
	}
}

type timelineRequest struct {
	Topic         string  `json:"topic"`
	Start         string  `json:"start"` // YYYY-MM-DD
	End           string  `json:"end"`
	MinImportance float64 `json:"minImportance"`
	MaxEvents     int     `json:"maxEvents"`
}

func (s *Server) timelineHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req timelineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Topic == "" {
			writeError(w, http.StatusBadRequest, "topic is required")
			return
		}

		opts := rag.TimelineOptions{
			MinImportance: req.MinImportance,
			MaxEvents:     req.MaxEvents,
		}
		if req.Start != "" {
			start, err := time.Parse("2006-01-02", req.Start)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid start date, want YYYY-MM-DD")
				return
			}
			opts.Start = start
		}
		if req.End != "" {
			end, err := time.Parse("2006-01-02", req.End)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid end date, want YYYY-MM-DD")
				return
			}
			opts.End = end
		}

		tl, err := s.service.BuildTimeline(r.Context(), req.Topic, opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tl)
	}
}

func (s *Server) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.service.Stats(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) userStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			writeError(w, http.StatusNotFound, "personalisation disabled")
			return
		}
		stats := s.users.UserStats(chi.URLParam(r, "id"))
		if stats == nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) deleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			writeError(w, http.StatusNotFound, "personalisation disabled")
			return
		}
		if !s.users.DeleteUser(chi.URLParam(r, "id")) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func (s *Server) preferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			writeError(w, http.StatusNotFound, "personalisation disabled")
			return
		}
		var update personalize.PreferenceUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		profile := s.users.UpdatePreferences(chi.URLParam(r, "id"), update)
		writeJSON(w, http.StatusOK, profile.Preferences)
	}
}

func (s *Server) privacyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			writeError(w, http.StatusNotFound, "personalisation disabled")
			return
		}
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.users.SetPrivacyMode(chi.URLParam(r, "id"), req.Enabled)
		writeJSON(w, http.StatusOK, map[string]bool{"privacyMode": req.Enabled})
	}
}

func (s *Server) exportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			writeError(w, http.StatusNotFound, "personalisation disabled")
			return
		}
		profile := s.users.ExportUserData(chi.URLParam(r, "id"))
		if profile == nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// writeServiceError maps a total store outage to 503; everything else is a
// plain 500.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, newsstore.ErrUnavailable) || newsstore.IsConnectivityError(err) {
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeError emits the error as a JSON body, matching every other response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
