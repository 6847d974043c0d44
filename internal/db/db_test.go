package db

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "newsrag.db")
	database, err := Open(path)
	if err != nil {
		t.Fatalf("opening db at %s: %v", path, err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	row := DocumentRow{
		ID:        "doc-1",
		Seq:       0,
		Content:   "Bitcoin hit a new all-time high today.",
		Embedding: EncodeVector([]float32{0.1, -0.5, 2.25}),
		Metadata:  `{"title":"ATH","source":"coindesk"}`,
		VoteUp:    3,
		VoteDown:  1,
	}
	if err := database.SaveDocument(ctx, row); err != nil {
		t.Fatalf("saving document: %v", err)
	}

	rows, err := database.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("listing documents: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	got := rows[0]
	if got.ID != row.ID || got.Content != row.Content || got.Metadata != row.Metadata {
		t.Errorf("row mismatch: got %+v", got)
	}
	if got.VoteUp != 3 || got.VoteDown != 1 {
		t.Errorf("votes = %d/%d, want 3/1", got.VoteUp, got.VoteDown)
	}
	vec := DecodeVector(got.Embedding)
	want := []float32{0.1, -0.5, 2.25}
	if len(vec) != len(want) {
		t.Fatalf("decoded %d dims, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestSaveDocumentUpsert(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.SaveDocument(ctx, DocumentRow{ID: "d", Seq: 0, Content: "old", Metadata: "{}"}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := database.SaveDocument(ctx, DocumentRow{ID: "d", Seq: 0, Content: "new", Metadata: "{}"}); err != nil {
		t.Fatalf("upserting: %v", err)
	}

	rows, err := database.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 after upsert", len(rows))
	}
	if rows[0].Content != "new" {
		t.Errorf("content = %q, want %q", rows[0].Content, "new")
	}
}

func TestListDocumentsSeqOrder(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	// Insert out of order.
	for _, row := range []DocumentRow{
		{ID: "c", Seq: 2, Content: "third", Metadata: "{}"},
		{ID: "a", Seq: 0, Content: "first", Metadata: "{}"},
		{ID: "b", Seq: 1, Content: "second", Metadata: "{}"},
	} {
		if err := database.SaveDocument(ctx, row); err != nil {
			t.Fatalf("saving %s: %v", row.ID, err)
		}
	}

	rows, err := database.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	for i, wantID := range []string{"a", "b", "c"} {
		if rows[i].ID != wantID {
			t.Errorf("rows[%d].ID = %q, want %q", i, rows[i].ID, wantID)
		}
	}

	next, err := database.NextDocumentSeq(ctx)
	if err != nil {
		t.Fatalf("next seq: %v", err)
	}
	if next != 3 {
		t.Errorf("next seq = %d, want 3", next)
	}
}

func TestNextDocumentSeqEmpty(t *testing.T) {
	database := newTestDB(t)

	next, err := database.NextDocumentSeq(context.Background())
	if err != nil {
		t.Fatalf("next seq: %v", err)
	}
	if next != 0 {
		t.Errorf("next seq = %d, want 0 on empty table", next)
	}
}

func TestUpdateVotes(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.SaveDocument(ctx, DocumentRow{ID: "d", Seq: 0, Content: "x", Metadata: "{}"}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := database.UpdateVotes(ctx, "d", 5, 2); err != nil {
		t.Fatalf("updating votes: %v", err)
	}

	rows, _ := database.ListDocuments(ctx)
	if rows[0].VoteUp != 5 || rows[0].VoteDown != 2 {
		t.Errorf("votes = %d/%d, want 5/2", rows[0].VoteUp, rows[0].VoteDown)
	}

	if err := database.UpdateVotes(ctx, "missing", 1, 0); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("updating missing doc: got %v, want sql.ErrNoRows", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.SaveDocument(ctx, DocumentRow{ID: "d", Seq: 0, Content: "x", Metadata: "{}"}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := database.DeleteDocument(ctx, "d"); err != nil {
		t.Fatalf("deleting: %v", err)
	}

	rows, err := database.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows after delete, want 0", len(rows))
	}
}

func TestProfileRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	payload := []byte(`{"userId":"alice","privacyMode":false}`)
	if err := database.SaveProfile(ctx, "alice", payload); err != nil {
		t.Fatalf("saving profile: %v", err)
	}

	got, err := database.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("getting profile: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("profile = %s, want %s", got, payload)
	}

	// Upsert replaces.
	updated := []byte(`{"userId":"alice","privacyMode":true}`)
	if err := database.SaveProfile(ctx, "alice", updated); err != nil {
		t.Fatalf("upserting profile: %v", err)
	}
	got, err = database.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("getting updated profile: %v", err)
	}
	if string(got) != string(updated) {
		t.Errorf("profile = %s, want %s", got, updated)
	}
}

func TestGetProfileMissing(t *testing.T) {
	database := newTestDB(t)

	_, err := database.GetProfile(context.Background(), "nobody")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("got %v, want sql.ErrNoRows", err)
	}
}

func TestDeleteProfile(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.SaveProfile(ctx, "bob", []byte("{}")); err != nil {
		t.Fatalf("saving profile: %v", err)
	}

	existed, err := database.DeleteProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("deleting profile: %v", err)
	}
	if !existed {
		t.Error("delete reported not found for existing profile")
	}

	existed, err = database.DeleteProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("deleting again: %v", err)
	}
	if existed {
		t.Error("delete reported found for missing profile")
	}
}

func TestVectorCodec(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"empty", nil},
		{"single", []float32{1}},
		{"negatives and fractions", []float32{-0.25, 0.5, -1024.75}},
		{"extremes", []float32{math.MaxFloat32, math.SmallestNonzeroFloat32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeVector(EncodeVector(tt.vec))
			if len(got) != len(tt.vec) {
				t.Fatalf("got %d dims, want %d", len(got), len(tt.vec))
			}
			for i := range tt.vec {
				if got[i] != tt.vec[i] {
					t.Errorf("dim %d = %v, want %v", i, got[i], tt.vec[i])
				}
			}
		})
	}
}

func TestDecodeVectorRejectsMisaligned(t *testing.T) {
	if got := DecodeVector([]byte{1, 2, 3}); got != nil {
		t.Errorf("got %v, want nil for a misaligned blob", got)
	}
}
