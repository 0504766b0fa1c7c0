//go:build kiwi

// Package kiwigo adapts the native Kiwi library (github.com/codingpot/kiwigo)
// to engine.Loader. The adapter is only compiled with the "kiwi" build tag
// because it needs cgo and the Kiwi shared library; offset conversion in
// spans.go builds everywhere.
package kiwigo

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	kiwi "github.com/codingpot/kiwigo"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// Loader opens native builders.
type Loader struct{}

var _ engine.Loader = Loader{}

// NewBuilder implements engine.Loader.
func (Loader) NewBuilder(cfg engine.Config) (engine.Builder, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, fmt.Errorf("%w: empty model path", internalerr.ErrInvalidConfig)
	}
	kb := kiwi.NewBuilder(cfg.ModelPath, cfg.NumThreads, kiwi.KIWI_BUILD_DEFAULT)
	if kb == nil {
		return nil, fmt.Errorf("kiwi: cannot open model %s", cfg.ModelPath)
	}
	return &builder{kb: kb}, nil
}

type builder struct {
	kb *kiwi.KiwiBuilder
}

func (b *builder) AddWord(word string, t tag.Tag, score float32) error {
	if word == "" {
		return fmt.Errorf("%w: empty word", internalerr.ErrInvalidInput)
	}
	if rc := b.kb.AddWord(word, kiwi.POSType(t), score); rc < 0 {
		return fmt.Errorf("kiwi: add word %q/%s failed (%d)", word, t, rc)
	}
	return nil
}

func (b *builder) Build() (engine.Engine, error) {
	k := b.kb.Build()
	b.kb.Close()
	if k == nil {
		return nil, fmt.Errorf("kiwi: build failed")
	}
	h := &handle{k: k}
	e := &Engine{k: k, h: h}
	// Engines dropped from the cache without Close are released once
	// unreachable.
	runtime.AddCleanup(e, (*handle).close, h)
	return e, nil
}

// handle owns the native pointer so that Close and the cleanup share one
// release.
type handle struct {
	k    *kiwi.Kiwi
	once sync.Once
}

func (h *handle) close() {
	h.once.Do(func() { h.k.Close() })
}

// Engine wraps a built native analyzer.
type Engine struct {
	k *kiwi.Kiwi
	h *handle
}

// Analyze implements engine.Analyzer.
func (e *Engine) Analyze(text string) ([]engine.Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", internalerr.ErrAnalysis)
	}
	if text == "" {
		return nil, nil
	}

	res, err := e.k.Analyze(text, 1, kiwi.KIWI_MATCH_ALL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrAnalysis, err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	raw := make([]span, len(res[0].Tokens))
	for i, ti := range res[0].Tokens {
		raw[i] = span{pos: ti.Position, width: utf8.RuneCountInString(ti.Form)}
	}
	spans := runeSpans(raw, []rune(text))

	out := make([]engine.Token, len(spans))
	for i, ti := range res[0].Tokens {
		out[i] = engine.Token{
			Form:  ti.Form,
			Tag:   tag.Tag(ti.Tag),
			Start: spans[i].start,
			End:   spans[i].end,
		}
	}
	return out, nil
}

// Close releases the native analyzer. Calling it more than once is safe.
func (e *Engine) Close() error {
	e.h.close()
	return nil
}
