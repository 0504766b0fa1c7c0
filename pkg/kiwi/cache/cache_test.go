package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine/memengine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// countingHook returns a build hook and a function reporting how many
// constructions ran.
func countingHook() (func(string), func() int64) {
	var n atomic.Int64
	return func(string) { n.Add(1) }, n.Load
}

func TestSameConfigSameHandle(t *testing.T) {
	model := t.TempDir()
	c := New(memengine.Loader{})

	h1, err := c.GetOrCreate(engine.Config{ModelPath: model, NumThreads: 2})
	require.NoError(t, err)
	h2, err := c.GetOrCreate(engine.Config{ModelPath: model + "/", NumThreads: 2})
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, c.Count())

	h3, err := c.GetOrCreate(engine.Config{ModelPath: model, NumThreads: 4})
	require.NoError(t, err)
	assert.NotSame(t, h1, h3)
	assert.Equal(t, 2, c.Count())
}

func TestConcurrentGetOrCreateBuildsOnce(t *testing.T) {
	model := t.TempDir()
	hook, builds := countingHook()

	release := make(chan struct{})
	loader := engine.LoaderFunc(func(cfg engine.Config) (engine.Builder, error) {
		<-release
		return memengine.Loader{}.NewBuilder(cfg)
	})
	c := New(loader, WithBuildHook(hook))

	const callers = 32
	handles := make([]*Handle, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.GetOrCreate(engine.Config{ModelPath: model})
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			handles[i] = h
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), builds())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestDistinctKeysDoNotWaitOnEachOther(t *testing.T) {
	slow, fast := t.TempDir(), t.TempDir()

	release := make(chan struct{})
	loader := engine.LoaderFunc(func(cfg engine.Config) (engine.Builder, error) {
		if cfg.ModelPath == slow {
			<-release
		}
		return memengine.Loader{}.NewBuilder(cfg)
	})
	c := New(loader)

	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrCreate(engine.Config{ModelPath: slow})
		done <- err
	}()

	_, err := c.GetOrCreate(engine.Config{ModelPath: fast})
	require.NoError(t, err, "unrelated key must not block behind a slow construction")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, c.Count())
}

func TestConstructionFailureReachesAllWaitersAndIsRetried(t *testing.T) {
	model := t.TempDir()
	hook, builds := countingHook()

	var fail atomic.Bool
	fail.Store(true)
	release := make(chan struct{})
	loader := engine.LoaderFunc(func(cfg engine.Config) (engine.Builder, error) {
		<-release
		if fail.Load() {
			return nil, errors.New("model files missing")
		}
		return memengine.Loader{}.NewBuilder(cfg)
	})
	c := New(loader, WithBuildHook(hook))

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrCreate(engine.Config{ModelPath: model})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, internalerr.ErrEngineConstruction)
		assert.ErrorContains(t, err, "model files missing")
	}
	assert.Equal(t, int64(1), builds())
	assert.Equal(t, 0, c.Count(), "failures are not cached")

	fail.Store(false)
	h, err := c.GetOrCreate(engine.Config{ModelPath: model})
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int64(2), builds())
}

func TestFailureDoesNotPoisonOtherKeys(t *testing.T) {
	good := t.TempDir()
	c := New(memengine.Loader{})

	_, err := c.GetOrCreate(engine.Config{ModelPath: filepath.Join(good, "missing")})
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrEngineConstruction)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.GetOrCreate(engine.Config{ModelPath: good})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count())
}

func TestUserDictionaryApplied(t *testing.T) {
	model := t.TempDir()
	dictPath := filepath.Join(t.TempDir(), "user.tsv")
	require.NoError(t, os.WriteFile(dictPath, []byte("코딩냄비\tNNP\t0\n망가진줄\n"), 0o644))

	c := New(memengine.Loader{})
	h, err := c.GetOrCreate(engine.Config{ModelPath: model, UserDictionary: dictPath})
	require.NoError(t, err)

	tokens, err := h.Analyze("코딩냄비")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "코딩냄비", tokens[0].Form)
	assert.Equal(t, tag.NNP, tokens[0].Tag)
}

func TestMissingUserDictionary(t *testing.T) {
	c := New(memengine.Loader{})

	_, err := c.GetOrCreate(engine.Config{ModelPath: t.TempDir(), UserDictionary: "/nonexistent/user.tsv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrEngineConstruction)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	assert.Equal(t, 0, c.Count())
}

func TestClearKeepsOutstandingHandlesUsable(t *testing.T) {
	model := t.TempDir()
	hook, builds := countingHook()
	c := New(memengine.Loader{Words: []memengine.Word{{Form: "학교", Tag: "NNG"}}}, WithBuildHook(hook))

	h, err := c.GetOrCreate(engine.Config{ModelPath: model})
	require.NoError(t, err)

	c.Clear()
	assert.Equal(t, 0, c.Count())

	tokens, err := h.Analyze("학교")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	h2, err := c.GetOrCreate(engine.Config{ModelPath: model})
	require.NoError(t, err)
	assert.NotSame(t, h, h2)
	assert.Equal(t, int64(2), builds())
}

type closeCounter struct {
	engine.Engine
	closed *atomic.Int64
}

func (c closeCounter) Close() error {
	c.closed.Add(1)
	return nil
}

type wrapBuilder struct {
	engine.Builder
	closed *atomic.Int64
}

func (b wrapBuilder) Build() (engine.Engine, error) {
	e, err := b.Builder.Build()
	if err != nil {
		return nil, err
	}
	return closeCounter{Engine: e, closed: b.closed}, nil
}

func TestCloseClosesEngines(t *testing.T) {
	var closed atomic.Int64
	loader := engine.LoaderFunc(func(cfg engine.Config) (engine.Builder, error) {
		b, err := memengine.Loader{}.NewBuilder(cfg)
		if err != nil {
			return nil, err
		}
		return wrapBuilder{Builder: b, closed: &closed}, nil
	})
	c := New(loader)

	_, err := c.GetOrCreate(engine.Config{ModelPath: t.TempDir()})
	require.NoError(t, err)
	_, err = c.GetOrCreate(engine.Config{ModelPath: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(2), closed.Load())
	assert.Equal(t, 0, c.Count())
}

func TestHandleConfig(t *testing.T) {
	model := t.TempDir()
	c := New(memengine.Loader{})
	cfg := engine.Config{ModelPath: model, NumThreads: 3}

	h, err := c.GetOrCreate(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, h.Config())
	assert.Equal(t, cfg.Key(), h.Key())
}
