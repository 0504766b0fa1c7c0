// Package cache shares loaded engines between analyzers. Loading a model is
// expensive, so each distinct engine.Config is constructed at most once and
// the resulting Handle is reused by every caller with an equal config.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/dict"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
)

// Handle is a constructed engine shared by any number of concurrent readers.
// It is never mutated after construction.
type Handle struct {
	key    string
	cfg    engine.Config
	engine engine.Engine
}

// Config returns the configuration the handle was built from.
func (h *Handle) Config() engine.Config { return h.cfg }

// Key returns the cache key of the handle.
func (h *Handle) Key() string { return h.key }

// Analyze runs a whole-text analysis. No locking happens here; the engine
// is required to support concurrent calls.
func (h *Handle) Analyze(text string) ([]engine.Token, error) {
	return h.engine.Analyze(text)
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for construction and dictionary messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithBuildHook registers fn to be called once per actual construction,
// before the loader runs.
func WithBuildHook(fn func(key string)) Option {
	return func(c *Cache) { c.onBuild = fn }
}

// Cache maps configuration keys to handles. Construction of distinct keys
// proceeds in parallel; concurrent requests for one unseen key share a
// single construction and its outcome. Failed constructions are not
// remembered, so a later call retries.
type Cache struct {
	loader  engine.Loader
	logger  *slog.Logger
	onBuild func(key string)

	group   singleflight.Group
	mu      sync.RWMutex
	handles map[string]*Handle
}

// New creates an empty cache that builds engines with loader.
func New(loader engine.Loader, opts ...Option) *Cache {
	c := &Cache{
		loader:  loader,
		logger:  slog.Default(),
		handles: make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the handle for cfg, constructing it if needed.
func (c *Cache) GetOrCreate(cfg engine.Config) (*Handle, error) {
	key := cfg.Key()
	if h, ok := c.lookup(key); ok {
		return h, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A flight that finished between lookup and Do already stored it.
		if h, ok := c.lookup(key); ok {
			return h, nil
		}
		h, err := c.build(key, cfg)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.handles[key] = h
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (c *Cache) lookup(key string) (*Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handles[key]
	return h, ok
}

func (c *Cache) build(key string, cfg engine.Config) (*Handle, error) {
	if c.onBuild != nil {
		c.onBuild(key)
	}
	logger := c.logger.With("model", cfg.ModelPath, "threads", cfg.NumThreads)
	start := time.Now()

	b, err := c.loader.NewBuilder(cfg)
	if err != nil {
		return nil, constructionError(cfg, err)
	}

	words := 0
	if cfg.UserDictionary != "" {
		entries, err := dict.Load(cfg.UserDictionary, logger)
		if err != nil {
			return nil, constructionError(cfg, err)
		}
		words = dict.Apply(b, entries, logger)
	}

	e, err := b.Build()
	if err != nil {
		return nil, constructionError(cfg, err)
	}
	if e == nil {
		return nil, constructionError(cfg, errors.New("builder returned no engine"))
	}

	logger.Info("engine loaded",
		"dictionary", cfg.UserDictionary,
		"user_words", words,
		"elapsed", time.Since(start))

	return &Handle{key: key, cfg: cfg, engine: e}, nil
}

func constructionError(cfg engine.Config, err error) error {
	return fmt.Errorf("%w: model %q: %w", internalerr.ErrEngineConstruction, cfg.ModelPath, err)
}

// Count returns the number of cached handles.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// Clear drops every cached handle. Callers still holding a handle may keep
// using it; the engine is released once nothing references it.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.handles = make(map[string]*Handle)
	c.mu.Unlock()
}

// Close clears the cache and closes every engine it held. Use it at
// process teardown only: outstanding handles become unusable.
func (c *Cache) Close() error {
	c.mu.Lock()
	handles := c.handles
	c.handles = make(map[string]*Handle)
	c.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine %q: %w", h.cfg.ModelPath, err))
		}
	}
	return errors.Join(errs...)
}
