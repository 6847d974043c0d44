package newsstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RemoteStore is a Store backed by a remote document service, speaking JSON
// over HTTP. Its observable behavior mirrors MemoryStore exactly; only
// latency and durability differ.
type RemoteStore struct {
	baseURL string
	client  *http.Client
}

// NewRemoteStore creates a client for the document service at baseURL.
func NewRemoteStore(baseURL string) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// wireDocument is the JSON representation shared by all remote endpoints.
type wireDocument struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Title     string    `json:"title"`
	Published time.Time `json:"published_at"`
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source"`
	SourceKey string    `json:"source_key,omitempty"`
	Category  string    `json:"category,omitempty"`
	Currency  []string  `json:"currencies,omitempty"`
	VoteUp    int       `json:"vote_up"`
	VoteDown  int       `json:"vote_down"`
	VoteScore float64   `json:"vote_score"`
}

func toWire(d Document) wireDocument {
	return wireDocument{
		ID:        d.ID,
		Content:   d.Content,
		Embedding: d.Embedding,
		Title:     d.Metadata.Title,
		Published: d.Metadata.PublishedAt,
		URL:       d.Metadata.URL,
		Source:    d.Metadata.Source,
		SourceKey: d.Metadata.SourceKey,
		Category:  d.Metadata.Category,
		Currency:  d.Metadata.Currencies,
		VoteUp:    d.Metadata.VoteUp,
		VoteDown:  d.Metadata.VoteDown,
		VoteScore: d.Metadata.VoteScore,
	}
}

func fromWire(w wireDocument) Document {
	return Document{
		ID:        w.ID,
		Content:   w.Content,
		Embedding: w.Embedding,
		Metadata: Metadata{
			Title:       w.Title,
			PublishedAt: w.Published,
			URL:         w.URL,
			Source:      w.Source,
			SourceKey:   w.SourceKey,
			Category:    w.Category,
			Currencies:  w.Currency,
			VoteUp:      w.VoteUp,
			VoteDown:    w.VoteDown,
			VoteScore:   w.VoteScore,
		},
	}
}

type wireFilter struct {
	DateStart    string   `json:"date_start,omitempty"`
	DateEnd      string   `json:"date_end,omitempty"`
	Currencies   []string `json:"currencies,omitempty"`
	Sources      []string `json:"sources,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	MinVoteScore *float64 `json:"min_vote_score,omitempty"`
}

func (s *RemoteStore) Add(ctx context.Context, doc Document) error {
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("add %s: %w", doc.ID, ErrNoEmbedding)
	}
	return s.do(ctx, http.MethodPost, "/documents", toWire(doc), nil)
}

func (s *RemoteStore) AddBatch(ctx context.Context, docs []Document) (added, skipped int, err error) {
	wire := make([]wireDocument, 0, len(docs))
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			skipped++
			continue
		}
		wire = append(wire, toWire(d))
	}
	var resp struct {
		Added   int `json:"added"`
		Skipped int `json:"skipped"`
	}
	if err := s.do(ctx, http.MethodPost, "/documents/batch", wire, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Added, skipped + resp.Skipped, nil
}

func (s *RemoteStore) Get(ctx context.Context, id string) (Document, error) {
	var w wireDocument
	err := s.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, &w)
	if err != nil {
		return Document{}, err
	}
	return fromWire(w), nil
}

func (s *RemoteStore) Delete(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := s.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (s *RemoteStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filter *Filter, threshold float64) ([]SearchResult, error) {
	req := struct {
		Embedding []float32   `json:"embedding"`
		TopK      int         `json:"top_k"`
		Threshold float64     `json:"threshold"`
		Filter    *wireFilter `json:"filter,omitempty"`
	}{Embedding: queryEmbedding, TopK: topK, Threshold: threshold}
	if filter != nil {
		req.Filter = &wireFilter{
			DateStart:    filter.DateStart,
			DateEnd:      filter.DateEnd,
			Currencies:   filter.Currencies,
			Sources:      filter.Sources,
			Categories:   filter.Categories,
			MinVoteScore: filter.MinVoteScore,
		}
	}

	var resp []struct {
		Document wireDocument `json:"document"`
		Score    float64      `json:"score"`
	}
	if err := s.do(ctx, http.MethodPost, "/search", req, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(resp))
	for i, r := range resp {
		results[i] = SearchResult{Document: fromWire(r.Document), Score: r.Score}
	}
	return results, nil
}

func (s *RemoteStore) RecordVote(ctx context.Context, id string, up bool) error {
	body := struct {
		Up bool `json:"up"`
	}{Up: up}
	return s.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/votes", body, nil)
}

func (s *RemoteStore) Stats(ctx context.Context) (Stats, error) {
	var resp struct {
		Documents       int       `json:"documents"`
		OldestPublished time.Time `json:"oldest_published"`
		NewestPublished time.Time `json:"newest_published"`
		Sources         []string  `json:"sources"`
		Categories      []string  `json:"categories"`
	}
	if err := s.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return Stats{}, err
	}
	return Stats{
		Documents:       resp.Documents,
		OldestPublished: resp.OldestPublished,
		NewestPublished: resp.NewestPublished,
		Sources:         resp.Sources,
		Categories:      resp.Categories,
	}, nil
}

// Healthy probes the remote service with a short deadline. Any transport
// error or non-200 counts as unavailable.
func (s *RemoteStore) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// connectivityError distinguishes backend-unreachable failures (which the
// failover tier absorbs) from business outcomes like ErrNotFound.
type connectivityError struct {
	err error
}

func (e *connectivityError) Error() string { return "remote store: " + e.err.Error() }
func (e *connectivityError) Unwrap() error { return e.err }

// IsConnectivityError reports whether err represents a backend that could
// not be reached, as opposed to a valid negative answer from it.
func IsConnectivityError(err error) bool {
	var ce *connectivityError
	return errors.As(err, &ce)
}

func (s *RemoteStore) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &connectivityError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return &connectivityError{err: fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)}
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
