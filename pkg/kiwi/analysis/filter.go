package analysis

import (
	"strings"

	snowballeng "github.com/kljensen/snowball/english"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/stoptags"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// FilterFactory wraps a stream with one filter stage.
type FilterFactory func(in TokenStream) TokenStream

// filter delegates everything but Next to its input.
type filter struct {
	in TokenStream
}

func (f filter) Token() *Token { return f.in.Token() }

func (f filter) End() (Offset, error) { return f.in.End() }

func (f filter) Close() error { return f.in.Close() }

// TagFilter drops tokens whose tag the predicate rejects. The position
// increments of dropped tokens are added to the next kept token so phrase
// queries still see the gap.
type TagFilter struct {
	filter
	pred stoptags.Predicate
}

// NewTagFilter wraps in with a tag predicate.
func NewTagFilter(in TokenStream, pred stoptags.Predicate) *TagFilter {
	return &TagFilter{filter: filter{in: in}, pred: pred}
}

// Next implements TokenStream.
func (f *TagFilter) Next() (bool, error) {
	skipped := 0
	for {
		ok, err := f.in.Next()
		if err != nil || !ok {
			return ok, err
		}
		tok := f.in.Token()
		if f.pred.Accept(tok.Tag) {
			tok.PositionIncrement += skipped
			return true, nil
		}
		skipped += tok.PositionIncrement
	}
}

// LowerCaseFilter lower-cases terms. Hangul has no case; this normalizes
// foreign words and Latin-script tokens.
type LowerCaseFilter struct {
	filter
}

// NewLowerCaseFilter wraps in.
func NewLowerCaseFilter(in TokenStream) *LowerCaseFilter {
	return &LowerCaseFilter{filter: filter{in: in}}
}

// Next implements TokenStream.
func (f *LowerCaseFilter) Next() (bool, error) {
	ok, err := f.in.Next()
	if ok {
		tok := f.in.Token()
		tok.Term = strings.ToLower(tok.Term)
	}
	return ok, err
}

// StemFilter applies the Snowball English stemmer to foreign-letter (SL)
// tokens, so "running" in mixed Korean/English text matches "run".
type StemFilter struct {
	filter
}

// NewStemFilter wraps in.
func NewStemFilter(in TokenStream) *StemFilter {
	return &StemFilter{filter: filter{in: in}}
}

// Next implements TokenStream.
func (f *StemFilter) Next() (bool, error) {
	ok, err := f.in.Next()
	if ok {
		tok := f.in.Token()
		if tok.Tag == tag.SL {
			tok.Term = snowballeng.Stem(tok.Term, false)
		}
	}
	return ok, err
}
