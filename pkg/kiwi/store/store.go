// Package store persists analyzed documents as term postings.
package store

import (
	"context"
	"time"
)

// Store is the interface for persisting and querying analyzed documents.
type Store interface {
	Close() error

	// UpsertDoc inserts or replaces a document and its postings, keyed by ID,
	// and returns the ID it was stored under. If d.URL already belongs to
	// another document, that document's ID wins and d replaces it; the lookup
	// and the write are atomic.
	UpsertDoc(ctx context.Context, d Doc) (string, error)
	// GetDoc returns internalerr.ErrNotFound for unknown IDs.
	GetDoc(ctx context.Context, id string) (Doc, error)
	GetDocByURL(ctx context.Context, url string) (Doc, bool, error)
	// DocsByTerms returns documents matching q, ordered by ID.
	DocsByTerms(ctx context.Context, q TermQuery) ([]Doc, error)

	// TermDF is the number of documents containing term.
	TermDF(ctx context.Context, term string) (int64, error)
	DocCount(ctx context.Context) (int64, error)
}

// Doc is a stored document.
type Doc struct {
	ID        string
	URL       string
	Title     string
	Body      string
	IndexedAt time.Time
	Postings  []Posting
}

// Posting is one token occurrence. Position counts token slots from 0 and
// includes gaps left by filtered tokens; Start and End are rune offsets into
// Body.
type Posting struct {
	Term     string
	Tag      string
	Position int
	Start    int
	End      int
}

// Terms returns the distinct terms of d in first-occurrence order.
func (d Doc) Terms() []string {
	seen := make(map[string]struct{}, len(d.Postings))
	var out []string
	for _, p := range d.Postings {
		if p.Term == "" {
			continue
		}
		if _, ok := seen[p.Term]; ok {
			continue
		}
		seen[p.Term] = struct{}{}
		out = append(out, p.Term)
	}
	return out
}

// TermQuery selects documents containing every term.
type TermQuery struct {
	Terms []string
	// Tags, when non-empty, only counts postings with one of these tags.
	Tags []string
	// After skips documents whose ID is not greater than After, so callers
	// can page through results.
	After string
	// Limit caps the page size; <= 0 uses DefaultLimit.
	Limit int
}

// PostingsWithTags returns the postings carrying one of tags, or all of
// them when tags is empty.
func PostingsWithTags(postings []Posting, tags []string) []Posting {
	if len(tags) == 0 {
		return postings
	}
	out := make([]Posting, 0, len(postings))
	for _, p := range postings {
		for _, t := range tags {
			if p.Tag == t {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// DefaultLimit caps DocsByTerms when the query sets no limit.
const DefaultLimit = 20

// UniqueStrings drops empty and repeated values, keeping order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
