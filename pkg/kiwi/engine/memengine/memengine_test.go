package memengine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

const testLexicon = `words:
  - form: 나
    tag: NP
  - form: 는
    tag: JX
  - form: 학교
    tag: NNG
  - form: 에
    tag: JKB
  - form: 갔
    tag: VV
  - form: 다
    tag: EF
`

func newTestEngine(t *testing.T) engine.Engine {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LexiconFile), []byte(testLexicon), 0o644))

	b, err := Loader{}.NewBuilder(engine.Config{ModelPath: dir})
	require.NoError(t, err)
	e, err := b.Build()
	require.NoError(t, err)
	return e
}

func TestAnalyzeSentence(t *testing.T) {
	e := newTestEngine(t)

	tokens, err := e.Analyze("나는 학교에 갔다.")
	require.NoError(t, err)

	want := []engine.Token{
		{Form: "나", Tag: tag.NP, Start: 0, End: 1},
		{Form: "는", Tag: tag.JX, Start: 1, End: 2},
		{Form: "학교", Tag: tag.NNG, Start: 3, End: 5},
		{Form: "에", Tag: tag.JKB, Start: 5, End: 6},
		{Form: "갔", Tag: tag.VV, Start: 7, End: 8},
		{Form: "다", Tag: tag.EF, Start: 8, End: 9},
		{Form: ".", Tag: tag.SF, Start: 9, End: 10},
	}
	assert.Equal(t, want, tokens)
}

func TestAnalyzeUnknownAndSymbols(t *testing.T) {
	e := newTestEngine(t)

	tokens, err := e.Analyze("안녕, Go 1024 漢字!")
	require.NoError(t, err)

	want := []engine.Token{
		{Form: "안녕", Tag: tag.NNP, Start: 0, End: 2},
		{Form: ",", Tag: tag.SP, Start: 2, End: 3},
		{Form: "Go", Tag: tag.SL, Start: 4, End: 6},
		{Form: "1024", Tag: tag.SN, Start: 7, End: 11},
		{Form: "漢字", Tag: tag.SH, Start: 12, End: 14},
		{Form: "!", Tag: tag.SF, Start: 14, End: 15},
	}
	assert.Equal(t, want, tokens)
}

func TestAnalyzeEmpty(t *testing.T) {
	e := newTestEngine(t)

	tokens, err := e.Analyze("")
	require.NoError(t, err)
	assert.Empty(t, tokens)

	tokens, err = e.Analyze("   \n\t")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestAnalyzeInvalidUTF8(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Analyze("학교\xff")
	assert.ErrorIs(t, err, internalerr.ErrAnalysis)
}

func TestUserWordPreferredByLongestMatch(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddWord("코딩", tag.NNG, 0))
	require.NoError(t, b.AddWord("냄비", tag.NNG, 0))
	require.NoError(t, b.AddWord("코딩냄비", tag.NNP, 0))
	e, err := b.Build()
	require.NoError(t, err)

	tokens, err := e.Analyze("코딩냄비")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, tag.NNP, tokens[0].Tag)
}

func TestAddWordScore(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddWord("사과", tag.NNG, 5))
	require.NoError(t, b.AddWord("사과", tag.VV, 1))

	e, err := b.Build()
	require.NoError(t, err)
	tokens, err := e.Analyze("사과")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, tag.NNG, tokens[0].Tag, "lower score must not replace the entry")
}

func TestAddWordRejects(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.AddWord("  ", tag.NNG, 0), internalerr.ErrInvalidInput)
	assert.ErrorIs(t, b.AddWord("단어", tag.Tag("BOGUS"), 0), internalerr.ErrUnknownTag)
}

func TestLoaderErrors(t *testing.T) {
	_, err := Loader{}.NewBuilder(engine.Config{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = Loader{}.NewBuilder(engine.Config{ModelPath: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LexiconFile), []byte("words:\n  - form: x\n    tag: NOPE\n"), 0o644))
	_, err = Loader{}.NewBuilder(engine.Config{ModelPath: dir})
	assert.ErrorIs(t, err, internalerr.ErrUnknownTag)
}

func TestLoaderWithoutLexiconFile(t *testing.T) {
	b, err := Loader{Words: []Word{{Form: "학교", Tag: "nng"}}}.NewBuilder(engine.Config{ModelPath: t.TempDir()})
	require.NoError(t, err)
	e, err := b.Build()
	require.NoError(t, err)

	tokens, err := e.Analyze("학교")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, tag.NNG, tokens[0].Tag)
}

func TestConcurrentAnalyze(t *testing.T) {
	e := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tokens, err := e.Analyze("나는 학교에 갔다")
				if err != nil || len(tokens) != 6 {
					t.Errorf("unexpected result: %v %v", tokens, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
