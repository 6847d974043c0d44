package newsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coinwatch/newsrag/internal/db"
)

// LocalStore is a MemoryStore with write-through SQLite persistence. The
// in-memory index remains the source of truth for search; the database only
// gives documents durability across restarts.
type LocalStore struct {
	mem *MemoryStore
	db  *db.DB
}

// persistedMetadata is the JSON shape of Metadata in the documents table.
type persistedMetadata struct {
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source"`
	SourceKey   string    `json:"source_key,omitempty"`
	Category    string    `json:"category,omitempty"`
	Currencies  []string  `json:"currencies,omitempty"`
}

// NewLocalStore loads the documents table into a fresh in-memory index.
// Rows are replayed in stored sequence order, so search tie-breaking
// survives restarts.
func NewLocalStore(ctx context.Context, database *db.DB) (*LocalStore, error) {
	s := &LocalStore{mem: NewMemoryStore(), db: database}

	rows, err := database.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	for _, row := range rows {
		doc, err := rowToDocument(row)
		if err != nil {
			// A corrupt persisted row is skipped, not fatal: the rest of
			// the corpus stays searchable.
			continue
		}
		if err := s.mem.Add(ctx, doc); err != nil {
			continue
		}
	}
	return s, nil
}

func rowToDocument(row db.DocumentRow) (Document, error) {
	var meta persistedMetadata
	if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
		return Document{}, fmt.Errorf("decoding metadata for %s: %w", row.ID, err)
	}
	return Document{
		ID:        row.ID,
		Content:   row.Content,
		Embedding: db.DecodeVector(row.Embedding),
		Metadata: Metadata{
			Title:       meta.Title,
			PublishedAt: meta.PublishedAt,
			URL:         meta.URL,
			Source:      meta.Source,
			SourceKey:   meta.SourceKey,
			Category:    meta.Category,
			Currencies:  meta.Currencies,
			VoteUp:      row.VoteUp,
			VoteDown:    row.VoteDown,
			VoteScore:   ComputeVoteScore(row.VoteUp, row.VoteDown, 1),
		},
	}, nil
}

func (s *LocalStore) persist(ctx context.Context, doc Document) error {
	meta, err := json.Marshal(persistedMetadata{
		Title:       doc.Metadata.Title,
		PublishedAt: doc.Metadata.PublishedAt,
		URL:         doc.Metadata.URL,
		Source:      doc.Metadata.Source,
		SourceKey:   doc.Metadata.SourceKey,
		Category:    doc.Metadata.Category,
		Currencies:  doc.Metadata.Currencies,
	})
	if err != nil {
		return err
	}

	// The stored document's seq is its tie-break position; mirror it.
	s.mem.mu.RLock()
	seq := int64(s.mem.docs[doc.ID].seq)
	s.mem.mu.RUnlock()

	return s.db.SaveDocument(ctx, db.DocumentRow{
		ID:        doc.ID,
		Seq:       seq,
		Content:   doc.Content,
		Embedding: db.EncodeVector(doc.Embedding),
		Metadata:  string(meta),
		VoteUp:    doc.Metadata.VoteUp,
		VoteDown:  doc.Metadata.VoteDown,
	})
}

func (s *LocalStore) Add(ctx context.Context, doc Document) error {
	if err := s.mem.Add(ctx, doc); err != nil {
		return err
	}
	stored, err := s.mem.Get(ctx, doc.ID)
	if err != nil {
		return err
	}
	return s.persist(ctx, stored)
}

func (s *LocalStore) AddBatch(ctx context.Context, docs []Document) (int, int, error) {
	added, skipped, err := s.mem.AddBatch(ctx, docs)
	if err != nil {
		return added, skipped, err
	}
	for _, doc := range docs {
		stored, err := s.mem.Get(ctx, doc.ID)
		if err != nil {
			continue // skipped during add
		}
		if err := s.persist(ctx, stored); err != nil {
			return added, skipped, fmt.Errorf("persisting %s: %w", doc.ID, err)
		}
	}
	return added, skipped, nil
}

func (s *LocalStore) Get(ctx context.Context, id string) (Document, error) {
	return s.mem.Get(ctx, id)
}

func (s *LocalStore) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.mem.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return true, err
	}
	return true, nil
}

func (s *LocalStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filter *Filter, threshold float64) ([]SearchResult, error) {
	return s.mem.Search(ctx, queryEmbedding, topK, filter, threshold)
}

func (s *LocalStore) RecordVote(ctx context.Context, id string, up bool) error {
	if err := s.mem.RecordVote(ctx, id, up); err != nil {
		return err
	}
	doc, err := s.mem.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.UpdateVotes(ctx, id, doc.Metadata.VoteUp, doc.Metadata.VoteDown)
}

func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	return s.mem.Stats(ctx)
}

// Healthy reports the local backend as always available.
func (s *LocalStore) Healthy(context.Context) bool { return true }
