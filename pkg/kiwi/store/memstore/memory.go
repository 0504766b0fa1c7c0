// Package memstore is an in-memory store.Store. Postings are kept as roaring
// bitmaps of document ordinals, so conjunctive term lookups are bitmap
// intersections.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]store.Doc
	ordinals map[string]uint32
	ids      []string // ordinal → doc ID
	urlIndex map[string]string
	terms    map[string]*roaring.Bitmap
	tagged   map[string]map[string]*roaring.Bitmap // term → tag → docs
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		docs:     make(map[string]store.Doc),
		ordinals: make(map[string]uint32),
		urlIndex: make(map[string]string),
		terms:    make(map[string]*roaring.Bitmap),
		tagged:   make(map[string]map[string]*roaring.Bitmap),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertDoc implements store.Store.
func (s *Store) UpsertDoc(ctx context.Context, d store.Doc) (string, error) {
	if d.ID == "" {
		return "", fmt.Errorf("%w: document without ID", internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.urlIndex[d.URL]; ok && d.URL != "" {
		d.ID = owner
	}

	ord, ok := s.ordinals[d.ID]
	if ok {
		old := s.docs[d.ID]
		s.unindex(ord, old)
		if old.URL != "" && old.URL != d.URL {
			delete(s.urlIndex, old.URL)
		}
	} else {
		ord = uint32(len(s.ids))
		s.ids = append(s.ids, d.ID)
		s.ordinals[d.ID] = ord
	}

	s.docs[d.ID] = copyDoc(d)
	if d.URL != "" {
		s.urlIndex[d.URL] = d.ID
	}
	s.index(ord, d)
	return d.ID, nil
}

func (s *Store) index(ord uint32, d store.Doc) {
	for _, p := range d.Postings {
		if p.Term == "" {
			continue
		}
		bm, ok := s.terms[p.Term]
		if !ok {
			bm = roaring.NewBitmap()
			s.terms[p.Term] = bm
		}
		bm.Add(ord)

		byTag, ok := s.tagged[p.Term]
		if !ok {
			byTag = make(map[string]*roaring.Bitmap)
			s.tagged[p.Term] = byTag
		}
		tbm, ok := byTag[p.Tag]
		if !ok {
			tbm = roaring.NewBitmap()
			byTag[p.Tag] = tbm
		}
		tbm.Add(ord)
	}
}

func (s *Store) unindex(ord uint32, d store.Doc) {
	for _, p := range d.Postings {
		if bm, ok := s.terms[p.Term]; ok {
			bm.Remove(ord)
			if bm.IsEmpty() {
				delete(s.terms, p.Term)
			}
		}
		if byTag, ok := s.tagged[p.Term]; ok {
			if tbm, ok := byTag[p.Tag]; ok {
				tbm.Remove(ord)
				if tbm.IsEmpty() {
					delete(byTag, p.Tag)
				}
			}
			if len(byTag) == 0 {
				delete(s.tagged, p.Term)
			}
		}
	}
}

// GetDoc implements store.Store.
func (s *Store) GetDoc(ctx context.Context, id string) (store.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return store.Doc{}, fmt.Errorf("%w: document %s", internalerr.ErrNotFound, id)
	}
	return copyDoc(doc), nil
}

// GetDocByURL implements store.Store.
func (s *Store) GetDocByURL(ctx context.Context, url string) (store.Doc, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.urlIndex[url]; ok {
		if doc, exists := s.docs[id]; exists {
			return copyDoc(doc), true, nil
		}
	}
	return store.Doc{}, false, nil
}

// DocsByTerms implements store.Store.
func (s *Store) DocsByTerms(ctx context.Context, q store.TermQuery) ([]store.Doc, error) {
	unique := store.UniqueStrings(q.Terms)
	if len(unique) == 0 {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bitmaps := make([]*roaring.Bitmap, 0, len(unique))
	for _, term := range unique {
		bm := s.termBitmap(term, q.Tags)
		if bm.IsEmpty() {
			return nil, nil
		}
		bitmaps = append(bitmaps, bm)
	}
	hits := roaring.FastAnd(bitmaps...)

	ids := make([]string, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		ids = append(ids, s.ids[it.Next()])
	}
	sort.Strings(ids)
	if q.After != "" {
		ids = ids[sort.Search(len(ids), func(i int) bool { return ids[i] > q.After }):]
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	results := make([]store.Doc, 0, len(ids))
	for _, id := range ids {
		results = append(results, copyDoc(s.docs[id]))
	}
	return results, nil
}

// termBitmap returns the documents containing term under any of tags, or
// under any tag when tags is empty. The result may be shared; do not modify.
func (s *Store) termBitmap(term string, tags []string) *roaring.Bitmap {
	if len(tags) == 0 {
		if bm, ok := s.terms[term]; ok {
			return bm
		}
		return roaring.NewBitmap()
	}
	byTag := s.tagged[term]
	var parts []*roaring.Bitmap
	for _, t := range tags {
		if bm, ok := byTag[t]; ok {
			parts = append(parts, bm)
		}
	}
	return roaring.FastOr(parts...)
}

// TermDF implements store.Store.
func (s *Store) TermDF(ctx context.Context, term string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bm, ok := s.terms[term]; ok {
		return int64(bm.GetCardinality()), nil
	}
	return 0, nil
}

// DocCount implements store.Store.
func (s *Store) DocCount(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

func copyDoc(d store.Doc) store.Doc {
	out := d
	if d.Postings != nil {
		out.Postings = append([]store.Posting(nil), d.Postings...)
	}
	return out
}
