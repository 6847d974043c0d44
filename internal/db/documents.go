package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DocumentRow is the flat persisted form of a stored document. Metadata is
// a JSON blob owned by the caller; the embedding is a packed float32 blob.
type DocumentRow struct {
	ID        string
	Seq       int64
	Content   string
	Embedding []byte
	Metadata  string
	VoteUp    int
	VoteDown  int
}

// SaveDocument inserts or replaces a document row.
func (d *DB) SaveDocument(ctx context.Context, row DocumentRow) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO documents (id, seq, content, embedding, metadata, vote_up, vote_down)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			vote_up = excluded.vote_up,
			vote_down = excluded.vote_down`,
		row.ID, row.Seq, row.Content, row.Embedding, row.Metadata, row.VoteUp, row.VoteDown)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", row.ID, err)
	}
	return nil
}

// DeleteDocument removes a document row by id.
func (d *DB) DeleteDocument(ctx context.Context, id string) error {
	if _, err := d.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// UpdateVotes sets the vote counters for a document.
func (d *DB) UpdateVotes(ctx context.Context, id string, up, down int) error {
	res, err := d.ExecContext(ctx, `UPDATE documents SET vote_up = ?, vote_down = ? WHERE id = ?`, up, down, id)
	if err != nil {
		return fmt.Errorf("updating votes for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListDocuments returns all document rows in insertion (seq) order.
func (d *DB) ListDocuments(ctx context.Context) ([]DocumentRow, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, seq, content, embedding, metadata, vote_up, vote_down
		FROM documents ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(&row.ID, &row.Seq, &row.Content, &row.Embedding, &row.Metadata, &row.VoteUp, &row.VoteDown); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// NextDocumentSeq returns one past the highest stored sequence number.
func (d *DB) NextDocumentSeq(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := d.QueryRowContext(ctx, `SELECT MAX(seq) FROM documents`).Scan(&max)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reading max seq: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64 + 1, nil
}
