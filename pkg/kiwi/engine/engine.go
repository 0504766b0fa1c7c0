// Package engine defines the capability interface every morphological
// analyzer backend implements. Higher layers depend only on these types;
// native bindings live in sub-packages (kiwigo) behind build tags.
package engine

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// Config identifies one engine instance.
type Config struct {
	ModelPath      string
	NumThreads     int    // 0 = let the engine decide
	UserDictionary string // "" = none
}

const keySep = "\x1f"

// Key joins the normalized configuration tuple into a cache key. Two configs
// with equal tuples always produce the same key.
func (c Config) Key() string {
	var b strings.Builder
	b.WriteString(cleanPath(c.ModelPath))
	b.WriteString(keySep)
	b.WriteString(strconv.Itoa(c.NumThreads))
	b.WriteString(keySep)
	b.WriteString(cleanPath(c.UserDictionary))
	return b.String()
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// Token is one morpheme produced by a whole-text analysis. Start and End are
// half-open rune offsets into the text passed to Analyze.
type Token struct {
	Form  string
	Tag   tag.Tag
	Start int
	End   int
}

// Analyzer is the read-only half of an engine.
type Analyzer interface {
	// Analyze returns the best tokenization of text in offset order.
	Analyze(text string) ([]Token, error)
}

// Engine analyzes whole texts. Implementations must be safe for concurrent
// Analyze calls once built and must not mutate shared state while doing so.
type Engine interface {
	Analyzer
	Close() error
}

// Builder accumulates user words before the engine is finalized.
type Builder interface {
	AddWord(word string, t tag.Tag, score float32) error
	Build() (Engine, error)
}

// Loader opens a builder for a model. It is the construct-from-config half of
// the engine capability.
type Loader interface {
	NewBuilder(cfg Config) (Builder, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(cfg Config) (Builder, error)

// NewBuilder implements Loader.
func (f LoaderFunc) NewBuilder(cfg Config) (Builder, error) { return f(cfg) }
