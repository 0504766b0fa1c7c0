package stoptags

import (
	"sort"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// Predicate decides whether a token with the given tag passes a filter stage.
type Predicate interface {
	Accept(t tag.Tag) bool
}

// Set is a set of tags removed by the filter stage.
type Set map[tag.Tag]struct{}

// NewSet creates a set from the given tags
func NewSet(tags ...tag.Tag) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Default returns the default stop set: particles, endings and punctuation.
// It does not depend on any index configuration.
func Default() Set {
	s := NewSet(tag.Particles()...)
	s.Add(tag.Endings()...)
	s.Add(tag.Punctuation()...)
	return s
}

// Parse builds a set from tag names. Names are upper-cased; an unknown
// name fails the whole set.
func Parse(names []string) (Set, error) {
	tags, err := tag.ParseAll(names)
	if err != nil {
		return nil, err
	}
	return NewSet(tags...), nil
}

// Contains checks if a tag is in the set
func (s Set) Contains(t tag.Tag) bool {
	_, ok := s[t]
	return ok
}

// Add adds tags to the set
func (s Set) Add(tags ...tag.Tag) {
	for _, t := range tags {
		s[t] = struct{}{}
	}
}

// Remove removes a tag from the set
func (s Set) Remove(t tag.Tag) {
	delete(s, t)
}

// All returns the members in lexical order
func (s Set) All() []tag.Tag {
	result := make([]tag.Tag, 0, len(s))
	for t := range s {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// StopPredicate accepts a tag iff it is not in Stops.
type StopPredicate struct {
	Stops Set
}

// Accept implements Predicate.
func (p StopPredicate) Accept(t tag.Tag) bool {
	return !p.Stops.Contains(t)
}

// ContentPredicate accepts only content-word tags: nouns, predicates,
// modifiers, interjections and foreign/number/hanja symbols.
type ContentPredicate struct{}

// Accept implements Predicate.
func (ContentPredicate) Accept(t tag.Tag) bool {
	return t.IsContent()
}
