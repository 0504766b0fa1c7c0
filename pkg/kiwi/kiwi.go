// Package kiwi wires settings, the engine cache and the analysis pipeline
// together. A Factory is what an indexing host holds on to: it hands out
// tokenizers, filter chains and complete analyzers, all sharing engines
// through one cache.
package kiwi

import (
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/analysis"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/cache"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/config"
)

// Factory builds pipeline components from settings.
type Factory struct {
	cache *cache.Cache
}

// NewFactory creates a factory backed by c.
func NewFactory(c *cache.Cache) *Factory {
	return &Factory{cache: c}
}

// Cache returns the engine cache the factory uses.
func (f *Factory) Cache() *cache.Cache {
	return f.cache
}

func (f *Factory) handle(s config.Settings) (*cache.Handle, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return f.cache.GetOrCreate(s.EngineConfig())
}

// NewTokenizer returns an uninitialized tokenizer over the engine s names.
func (f *Factory) NewTokenizer(s config.Settings) (*analysis.Tokenizer, error) {
	h, err := f.handle(s)
	if err != nil {
		return nil, err
	}
	opts, err := s.TokenizerOptions()
	if err != nil {
		return nil, err
	}
	return analysis.NewTokenizer(h, opts), nil
}

// NewFilter returns the post-tokenizer stages as one factory. It does not
// touch the engine cache.
func (f *Factory) NewFilter(s config.Settings) (analysis.FilterFactory, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	opts, err := s.AnalyzerOptions()
	if err != nil {
		return nil, err
	}
	stages := analysis.Filters(opts)
	return func(in analysis.TokenStream) analysis.TokenStream {
		for _, stage := range stages {
			in = stage(in)
		}
		return in
	}, nil
}

// NewAnalyzer returns a complete, shareable pipeline.
func (f *Factory) NewAnalyzer(s config.Settings) (*analysis.Analyzer, error) {
	h, err := f.handle(s)
	if err != nil {
		return nil, err
	}
	opts, err := s.AnalyzerOptions()
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(h, opts), nil
}
