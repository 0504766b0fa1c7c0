package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store/storetest"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return st
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, openTemp)
}

func TestReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	st, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	doc := store.Doc{
		ID:       "01HZX0000000000000000000A1",
		URL:      "https://example.com/a",
		Postings: []store.Posting{{Term: "학교", Tag: "NNG", Position: 0, Start: 3, End: 5}},
	}
	if _, err := st.UpsertDoc(ctx, doc); err != nil {
		t.Fatalf("UpsertDoc: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, err := st.GetDoc(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDoc after reopen: %v", err)
	}
	if len(got.Postings) != 1 || got.Postings[0] != doc.Postings[0] {
		t.Errorf("postings mismatch after reopen: %+v", got.Postings)
	}
}

func TestDocsWithoutURL(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	defer st.Close()

	// NULL urls do not collide on the UNIQUE constraint.
	for _, id := range []string{"a", "b"} {
		if _, err := st.UpsertDoc(ctx, store.Doc{ID: id}); err != nil {
			t.Fatalf("UpsertDoc %s: %v", id, err)
		}
	}
	n, err := st.DocCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 docs, got %d", n)
	}
}
