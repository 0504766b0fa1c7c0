// Package analysis turns one-shot engine results into pull-based token
// streams for an indexer.
//
// A stream is a Tokenizer, optionally wrapped by filters. Consumers call
// Next until it reports false, read each token with Token, then call End for
// the final offset and Close to release the buffered analysis:
//
//	ts, err := analyzer.TokenStream(text)
//	if err != nil { ... }
//	defer ts.Close()
//	for {
//		ok, err := ts.Next()
//		if err != nil || !ok { break }
//		tok := ts.Token()
//		...
//	}
//	final, err := ts.End()
//
// Offsets are rune offsets into the caller's text. Streams are not safe for
// concurrent use; each document gets its own.
package analysis

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/charfilter"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// Token is the record handed to the indexer.
type Token struct {
	Term              string  `json:"term"`
	Tag               tag.Tag `json:"tag"`
	Start             int     `json:"start"`
	End               int     `json:"end"`
	PositionIncrement int     `json:"position_increment"`
}

// Offset is a start/end pair.
type Offset struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TokenStream is a pull-based sequence of tokens. Token returns the current
// token and is only valid after Next reported true; filters rewrite it in
// place.
type TokenStream interface {
	Next() (bool, error)
	Token() *Token
	End() (Offset, error)
	Close() error
}

type state int

const (
	stateUninitialized state = iota
	stateReset
	stateStreaming
	stateEnded
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateReset:
		return "reset"
	case stateStreaming:
		return "streaming"
	case stateEnded:
		return "ended"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TokenizerOptions selects which engine tokens the tokenizer emits.
type TokenizerOptions struct {
	// DiscardPunctuation drops punctuation-tagged tokens.
	DiscardPunctuation bool
	// IncludeTags, when non-empty, restricts output to these tags.
	IncludeTags map[tag.Tag]struct{}
	// CharFilters rewrite the text before analysis; offsets are corrected
	// back to the original text.
	CharFilters []charfilter.CharFilter
}

// Tokenizer buffers one whole-text analysis and replays it token by token.
//
// Lifecycle: uninitialized → Reset → Next* → End → Close. Reset may be
// called again in any state, including after Close; it discards everything
// from the previous document.
type Tokenizer struct {
	src  engine.Analyzer
	opts TokenizerOptions

	state     state
	tokens    []engine.Token
	cursor    int
	pending   int
	corrector charfilter.Corrector
	length    int
	final     int
	current   Token
}

var _ TokenStream = (*Tokenizer)(nil)

// NewTokenizer creates an uninitialized tokenizer reading from src.
func NewTokenizer(src engine.Analyzer, opts TokenizerOptions) *Tokenizer {
	return &Tokenizer{src: src, opts: opts, corrector: charfilter.Identity}
}

// Reset analyzes text and rewinds the stream. If the engine fails, nothing
// is buffered and the tokenizer stays uninitialized.
func (t *Tokenizer) Reset(text string) error {
	t.release()
	t.state = stateUninitialized

	filtered, corrector := charfilter.Apply(text, t.opts.CharFilters)
	tokens, err := t.src.Analyze(filtered)
	if err != nil {
		if errors.Is(err, internalerr.ErrAnalysis) {
			return err
		}
		return fmt.Errorf("%w: %w", internalerr.ErrAnalysis, err)
	}
	if err := validate(tokens, utf8.RuneCountInString(filtered)); err != nil {
		return err
	}

	t.tokens = tokens
	t.corrector = corrector
	t.length = utf8.RuneCountInString(text)
	t.cursor = 0
	t.pending = 1
	if n := len(tokens); n > 0 {
		t.final = t.correctEnd(tokens[n-1].End)
	}
	t.state = stateReset
	return nil
}

// validate enforces the engine contract: offsets inside the text, no
// zero-width tokens, start offsets non-decreasing.
func validate(tokens []engine.Token, length int) error {
	prevStart := 0
	for i, tok := range tokens {
		if tok.Start < 0 || tok.End > length || tok.End <= tok.Start {
			return fmt.Errorf("%w: token %d %q has offsets [%d,%d) outside text of length %d",
				internalerr.ErrAnalysis, i, tok.Form, tok.Start, tok.End, length)
		}
		if tok.Start < prevStart {
			return fmt.Errorf("%w: token %d %q starts at %d before previous start %d",
				internalerr.ErrAnalysis, i, tok.Form, tok.Start, prevStart)
		}
		prevStart = tok.Start
	}
	return nil
}

// Next advances to the next emitted token. Tokens rejected by the
// punctuation or include filters are skipped and counted into the position
// increment of the next emitted token.
func (t *Tokenizer) Next() (bool, error) {
	switch t.state {
	case stateReset, stateStreaming:
	default:
		return false, fmt.Errorf("%w: next called while %s", internalerr.ErrIllegalState, t.state)
	}
	t.state = stateStreaming

	for t.cursor < len(t.tokens) {
		raw := t.tokens[t.cursor]
		t.cursor++

		if !t.accept(raw.Tag) {
			t.pending++
			continue
		}

		start := t.correctStart(raw.Start)
		end := max(t.correctEnd(raw.End), start)
		t.current = Token{
			Term:              raw.Form,
			Tag:               raw.Tag,
			Start:             start,
			End:               end,
			PositionIncrement: t.pending,
		}
		t.pending = 1
		return true, nil
	}
	return false, nil
}

func (t *Tokenizer) accept(tg tag.Tag) bool {
	if t.opts.DiscardPunctuation && tg.IsPunctuation() {
		return false
	}
	if len(t.opts.IncludeTags) > 0 {
		if _, ok := t.opts.IncludeTags[tg]; !ok {
			return false
		}
	}
	return true
}

func (t *Tokenizer) correctStart(off int) int {
	return t.clamp(t.corrector.CorrectStart(off))
}

func (t *Tokenizer) correctEnd(off int) int {
	return t.clamp(t.corrector.CorrectEnd(off))
}

func (t *Tokenizer) clamp(off int) int {
	return min(max(off, 0), t.length)
}

// Token returns the current token.
func (t *Tokenizer) Token() *Token {
	return &t.current
}

// End marks the stream finished and returns the final offset: the end of
// the last analyzed token, or 0 for empty input.
func (t *Tokenizer) End() (Offset, error) {
	switch t.state {
	case stateReset, stateStreaming, stateEnded:
	default:
		return Offset{}, fmt.Errorf("%w: end called while %s", internalerr.ErrIllegalState, t.state)
	}
	t.state = stateEnded
	t.current = Token{Start: t.final, End: t.final}
	return Offset{Start: t.final, End: t.final}, nil
}

// Close releases the buffered analysis. Calling it more than once is safe.
func (t *Tokenizer) Close() error {
	t.release()
	t.state = stateClosed
	return nil
}

func (t *Tokenizer) release() {
	t.tokens = nil
	t.cursor = 0
	t.pending = 1
	t.corrector = charfilter.Identity
	t.length = 0
	t.final = 0
	t.current = Token{}
}
