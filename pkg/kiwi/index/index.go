// Package index stores analyzed documents as postings and answers term and
// phrase queries analyzed with the same pipeline.
package index

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/analysis"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store"
)

// TextAnalyzer turns text into tokens. *analysis.Analyzer implements it.
type TextAnalyzer interface {
	Analyze(text string) ([]analysis.Token, error)
}

// Index ingests and searches documents.
type Index struct {
	store    store.Store
	analyzer TextAnalyzer
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// WithClock overrides time.Now for IndexedAt and ID generation.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// New creates an index over st. Documents and queries go through a.
func New(st store.Store, a TextAnalyzer, opts ...Option) *Index {
	ix := &Index{
		store:    st,
		analyzer: a,
		logger:   slog.Default(),
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Doc is a document to be ingested.
type Doc struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Ingest analyzes d and stores its postings. A document whose URL is already
// indexed keeps its ID and has its postings replaced; the store resolves the
// URL atomically, so concurrent ingests of one URL end up as one document.
// It returns the ID.
func (ix *Index) Ingest(ctx context.Context, d Doc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := ix.now()
	id := ix.newID(now)

	tokens, err := ix.analyzer.Analyze(d.Body)
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", describe(d, id), err)
	}

	doc := store.Doc{
		ID:        id,
		URL:       d.URL,
		Title:     d.Title,
		Body:      d.Body,
		IndexedAt: now,
		Postings:  Postings(tokens),
	}
	id, err = ix.store.UpsertDoc(ctx, doc)
	if err != nil {
		return "", err
	}

	ix.logger.Debug("document indexed", "id", id, "url", d.URL, "postings", len(doc.Postings))
	return id, nil
}

func (ix *Index) newID(t time.Time) string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), ix.entropy).String()
}

func describe(d Doc, id string) string {
	if d.URL != "" {
		return d.URL
	}
	return id
}

// Postings converts a token stream into postings. Positions start at 0 and
// advance by each token's increment, so gaps left by filtered tokens remain.
func Postings(tokens []analysis.Token) []store.Posting {
	out := make([]store.Posting, 0, len(tokens))
	pos := -1
	for _, tok := range tokens {
		pos += max(tok.PositionIncrement, 1)
		out = append(out, store.Posting{
			Term:     tok.Term,
			Tag:      string(tok.Tag),
			Position: pos,
			Start:    tok.Start,
			End:      tok.End,
		})
	}
	return out
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// Tags restricts matches to postings with one of these tags.
	Tags []string
	// Phrase requires the query terms at the same relative positions they
	// have in the query.
	Phrase bool
	// Limit caps the number of hits; <= 0 uses store.DefaultLimit.
	Limit int
}

// phrasePage is the number of term candidates fetched per page, per
// requested hit, while phrase checks drop candidates.
const phrasePage = 10

// Hit is one matching document and the postings that matched.
type Hit struct {
	Doc     store.Doc
	Matches []store.Posting
}

// Search analyzes query and returns documents containing all of its terms.
// With Phrase set it pages through term candidates until Limit documents
// pass the phrase check or the candidates run out.
func (ix *Index) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	tokens, err := ix.analyzer.Analyze(query)
	if err != nil {
		return nil, fmt.Errorf("analyze query: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: query %q has no searchable terms", internalerr.ErrInvalidInput, query)
	}
	qp := Postings(tokens)

	terms := make([]string, len(qp))
	want := make(map[string]struct{}, len(qp))
	for i, p := range qp {
		terms[i] = p.Term
		want[p.Term] = struct{}{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	q := store.TermQuery{Terms: terms, Tags: opts.Tags, Limit: limit}
	if opts.Phrase {
		q.Limit = limit * phrasePage
	}

	var hits []Hit
	for {
		docs, err := ix.store.DocsByTerms(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			postings := store.PostingsWithTags(d.Postings, opts.Tags)
			if opts.Phrase && !containsPhrase(postings, qp) {
				continue
			}
			hit := Hit{Doc: d}
			for _, p := range postings {
				if _, ok := want[p.Term]; ok {
					hit.Matches = append(hit.Matches, p)
				}
			}
			hits = append(hits, hit)
			if len(hits) == limit {
				return hits, nil
			}
		}
		if !opts.Phrase || len(docs) < q.Limit {
			return hits, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.After = docs[len(docs)-1].ID
	}
}

// containsPhrase reports whether doc has the query terms at the query's
// relative positions.
func containsPhrase(doc []store.Posting, query []store.Posting) bool {
	at := make(map[int]map[string]struct{}, len(doc))
	for _, p := range doc {
		terms, ok := at[p.Position]
		if !ok {
			terms = make(map[string]struct{}, 1)
			at[p.Position] = terms
		}
		terms[p.Term] = struct{}{}
	}

	base := query[0].Position
	for _, p := range doc {
		if p.Term != query[0].Term {
			continue
		}
		matched := true
		for _, q := range query[1:] {
			if _, ok := at[p.Position+q.Position-base][q.Term]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
