package analysis

import (
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/stoptags"
)

// AnalyzerOptions configures a full pipeline.
type AnalyzerOptions struct {
	Tokenizer TokenizerOptions
	// TagFilter is applied after the tokenizer; nil disables the stage.
	TagFilter   stoptags.Predicate
	LowerCase   bool
	StemForeign bool
}

// Analyzer composes tokenizer → tag filter → lower-casing → stemming. It
// holds no per-document state and is safe to share; every call builds a
// fresh stream over the shared engine.
type Analyzer struct {
	src     engine.Analyzer
	opts    AnalyzerOptions
	filters []FilterFactory
}

// NewAnalyzer creates an analyzer over src.
func NewAnalyzer(src engine.Analyzer, opts AnalyzerOptions) *Analyzer {
	return &Analyzer{src: src, opts: opts, filters: Filters(opts)}
}

// Filters returns the filter stages opts enables, in pipeline order.
func Filters(opts AnalyzerOptions) []FilterFactory {
	var fs []FilterFactory
	if opts.TagFilter != nil {
		pred := opts.TagFilter
		fs = append(fs, func(in TokenStream) TokenStream { return NewTagFilter(in, pred) })
	}
	if opts.LowerCase {
		fs = append(fs, func(in TokenStream) TokenStream { return NewLowerCaseFilter(in) })
	}
	if opts.StemForeign {
		fs = append(fs, func(in TokenStream) TokenStream { return NewStemFilter(in) })
	}
	return fs
}

// TokenStream analyzes text and returns the composed stream. The caller
// must Close it.
func (a *Analyzer) TokenStream(text string) (TokenStream, error) {
	tz := NewTokenizer(a.src, a.opts.Tokenizer)
	if err := tz.Reset(text); err != nil {
		tz.Close()
		return nil, err
	}

	var ts TokenStream = tz
	for _, f := range a.filters {
		ts = f(ts)
	}
	return ts, nil
}

// Analyze drains a stream for text into a slice. The stream is closed on
// every path.
func (a *Analyzer) Analyze(text string) (tokens []Token, err error) {
	ts, err := a.TokenStream(text)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ts.Close(); err == nil {
			err = cerr
		}
	}()

	for {
		ok, err := ts.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		tokens = append(tokens, *ts.Token())
	}
	if _, err := ts.End(); err != nil {
		return nil, err
	}
	return tokens, nil
}
