// Package storetest holds behavior tests every store.Store implementation
// must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store"
)

// Opener returns a fresh, empty store. Run closes it.
type Opener func(t *testing.T) store.Store

// Run exercises st against the store.Store contract.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"UpsertAndGet", testUpsertAndGet},
		{"GetMissing", testGetMissing},
		{"RejectsEmptyID", testRejectsEmptyID},
		{"ReplacePostings", testReplacePostings},
		{"DocsByTermsConjunctive", testDocsByTermsConjunctive},
		{"DocsByTermsTags", testDocsByTermsTags},
		{"DocsByTermsLimit", testDocsByTermsLimit},
		{"DocsByTermsAfter", testDocsByTermsAfter},
		{"TermDF", testTermDF},
		{"URLKeepsID", testURLKeepsID},
		{"ConcurrentUpserts", testConcurrentUpserts},
		{"ConcurrentSameURL", testConcurrentSameURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := open(t)
			defer st.Close()
			tt.fn(t, st)
		})
	}
}

func upsert(t *testing.T, st store.Store, d store.Doc) string {
	t.Helper()
	id, err := st.UpsertDoc(context.Background(), d)
	require.NoError(t, err)
	return id
}

func postings(pairs ...string) []store.Posting {
	var out []store.Posting
	pos := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, store.Posting{Term: pairs[i], Tag: pairs[i+1], Position: pos, Start: pos * 2, End: pos*2 + 1})
		pos++
	}
	return out
}

func testUpsertAndGet(t *testing.T, st store.Store) {
	ctx := context.Background()
	indexed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	doc := store.Doc{
		ID:        "01HZX0000000000000000000A1",
		URL:       "https://example.com/school",
		Title:     "학교",
		Body:      "나는 학교에 갔다",
		IndexedAt: indexed,
		Postings:  postings("나", "NP", "학교", "NNG", "가", "VV"),
	}
	upsert(t, st, doc)

	got, err := st.GetDoc(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.URL, got.URL)
	assert.Equal(t, doc.Body, got.Body)
	assert.True(t, indexed.Equal(got.IndexedAt), "indexed_at round trip: %v", got.IndexedAt)
	assert.Equal(t, doc.Postings, got.Postings)

	byURL, found, err := st.GetDocByURL(ctx, doc.URL)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, doc.ID, byURL.ID)

	_, found, err = st.GetDocByURL(ctx, "https://example.com/none")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := st.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testGetMissing(t *testing.T, st store.Store) {
	_, err := st.GetDoc(context.Background(), "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}

func testRejectsEmptyID(t *testing.T, st store.Store) {
	_, err := st.UpsertDoc(context.Background(), store.Doc{Title: "orphan"})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func testReplacePostings(t *testing.T, st store.Store) {
	ctx := context.Background()
	upsert(t, st, store.Doc{ID: "a", Postings: postings("학교", "NNG")})
	upsert(t, st, store.Doc{ID: "a", Postings: postings("서울", "NNP")})

	docs, err := st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교"}, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, docs, "old postings are replaced")

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"서울"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	df, err := st.TermDF(ctx, "학교")
	require.NoError(t, err)
	assert.Zero(t, df)

	n, err := st.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testDocsByTermsConjunctive(t *testing.T, st store.Store) {
	ctx := context.Background()
	upsert(t, st, store.Doc{ID: "a", Postings: postings("학교", "NNG", "서울", "NNP")})
	upsert(t, st, store.Doc{ID: "b", Postings: postings("학교", "NNG", "학교", "NNG")})
	upsert(t, st, store.Doc{ID: "c", Postings: postings("서울", "NNP")})

	docs, err := st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(docs))

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"서울", "학교", "학교"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(docs))

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교", "부산"}})
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = st.DocsByTerms(ctx, store.TermQuery{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testDocsByTermsTags(t *testing.T, st store.Store) {
	ctx := context.Background()
	upsert(t, st, store.Doc{ID: "a", Postings: postings("가", "VV")})
	upsert(t, st, store.Doc{ID: "b", Postings: postings("가", "JKS")})

	docs, err := st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"가"}, Tags: []string{"VV"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(docs))

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"가"}, Tags: []string{"VV", "JKS"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(docs))

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"가"}, Tags: []string{"NNG"}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testDocsByTermsLimit(t *testing.T, st store.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("doc-%d", i)
		upsert(t, st, store.Doc{ID: id, Postings: postings("학교", "NNG")})
	}

	docs, err := st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교"}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-0", "doc-1"}, ids(docs))
}

func testDocsByTermsAfter(t *testing.T, st store.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		upsert(t, st, store.Doc{ID: fmt.Sprintf("doc-%d", i), Postings: postings("학교", "NNG")})
	}

	docs, err := st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교"}, After: "doc-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-2", "doc-3"}, ids(docs))

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교"}, After: "doc-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-4"}, ids(docs))

	docs, err = st.DocsByTerms(ctx, store.TermQuery{Terms: []string{"학교"}, After: "doc-4"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testTermDF(t *testing.T, st store.Store) {
	ctx := context.Background()
	upsert(t, st, store.Doc{ID: "a", Postings: postings("학교", "NNG", "학교", "NNG")})
	upsert(t, st, store.Doc{ID: "b", Postings: postings("학교", "NNG")})

	df, err := st.TermDF(ctx, "학교")
	require.NoError(t, err)
	assert.Equal(t, int64(2), df)

	df, err = st.TermDF(ctx, "없음")
	require.NoError(t, err)
	assert.Zero(t, df)
}

func testConcurrentUpserts(t *testing.T, st store.Store) {
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := store.Doc{ID: fmt.Sprintf("doc-%02d", i), Postings: postings("학교", "NNG")}
			if _, err := st.UpsertDoc(ctx, d); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	df, err := st.TermDF(ctx, "학교")
	require.NoError(t, err)
	assert.Equal(t, int64(16), df)
}

func testURLKeepsID(t *testing.T, st store.Store) {
	ctx := context.Background()
	const url = "https://example.com/school"

	first := upsert(t, st, store.Doc{ID: "a", URL: url, Postings: postings("학교", "NNG")})
	assert.Equal(t, "a", first)

	second := upsert(t, st, store.Doc{ID: "b", URL: url, Body: "서울", Postings: postings("서울", "NNP")})
	assert.Equal(t, "a", second, "the URL's existing ID wins")

	got, err := st.GetDoc(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "서울", got.Body)

	_, err = st.GetDoc(ctx, "b")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	df, err := st.TermDF(ctx, "학교")
	require.NoError(t, err)
	assert.Zero(t, df)

	n, err := st.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testConcurrentSameURL(t *testing.T, st store.Store) {
	ctx := context.Background()
	const url = "https://example.com/dup"

	var wg sync.WaitGroup
	got := make([]string, 8)
	errs := make(chan error, len(got))
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := store.Doc{ID: fmt.Sprintf("doc-%02d", i), URL: url, Postings: postings("학교", "NNG")}
			id, err := st.UpsertDoc(ctx, d)
			if err != nil {
				errs <- err
				return
			}
			got[i] = id
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for _, id := range got[1:] {
		assert.Equal(t, got[0], id, "every writer resolves to one document")
	}
	n, err := st.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	byURL, found, err := st.GetDocByURL(ctx, url)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, got[0], byURL.ID)
}

func ids(docs []store.Doc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
