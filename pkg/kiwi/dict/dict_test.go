package dict

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidAndMalformedLine(t *testing.T) {
	logger, logs := captureLogger()
	path := writeDict(t, "코딩냄비\tNNP\t1.5\n잘못된줄\n")

	entries, err := Load(path, logger)
	require.NoError(t, err)

	assert.Equal(t, []Entry{{Word: "코딩냄비", Tag: tag.NNP, Score: 1.5}}, entries)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "expected word and tag")
}

func TestParseFormats(t *testing.T) {
	logger, logs := captureLogger()
	input := strings.Join([]string{
		"\ufeff# comment line",
		"",
		"   ",
		"학교\tnng",
		"  공부하다\tVV\t-2.0  ",
		"점수없음\tNNG\tabc",
		"알수없음\tZZZ\t1",
		"빈점수\tNNP\t",
	}, "\n")

	entries, err := Parse(strings.NewReader(input), logger)
	require.NoError(t, err)

	want := []Entry{
		{Word: "학교", Tag: tag.NNG},
		{Word: "공부하다", Tag: tag.VV, Score: -2},
		{Word: "점수없음", Tag: tag.NNG},
		{Word: "빈점수", Tag: tag.NNP},
	}
	assert.Equal(t, want, entries)

	out := logs.String()
	assert.Contains(t, out, "invalid dictionary score")
	assert.Contains(t, out, "unknown tag")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tsv"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseSkipsOversizedLine(t *testing.T) {
	logger, logs := captureLogger()
	input := "학교\tNNG\n" + strings.Repeat("가", maxLine) + "\tNNG\n서울\tNNP\n"

	entries, err := Parse(strings.NewReader(input), logger)
	require.NoError(t, err)

	assert.Equal(t, []Entry{{Word: "학교", Tag: tag.NNG}, {Word: "서울", Tag: tag.NNP}}, entries)
	assert.Contains(t, logs.String(), "too long")
	assert.Contains(t, logs.String(), "line=2")
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParseReadError(t *testing.T) {
	_, err := Parse(errReader{}, nil)
	assert.EqualError(t, err, "disk gone")
}

type recordingBuilder struct {
	words  []Entry
	reject string
}

func (b *recordingBuilder) AddWord(word string, t tag.Tag, score float32) error {
	if word == b.reject {
		return internalerr.ErrInvalidInput
	}
	b.words = append(b.words, Entry{Word: word, Tag: t, Score: score})
	return nil
}

func (b *recordingBuilder) Build() (engine.Engine, error) { return nil, nil }

func TestApply(t *testing.T) {
	logger, logs := captureLogger()
	b := &recordingBuilder{reject: "거부"}
	entries := []Entry{
		{Word: "학교", Tag: tag.NNG},
		{Word: "거부", Tag: tag.NNG},
		{Word: "코딩", Tag: tag.NNP, Score: 3},
	}

	added := Apply(b, entries, logger)

	assert.Equal(t, 2, added)
	assert.Equal(t, []Entry{entries[0], entries[2]}, b.words)
	assert.Contains(t, logs.String(), "engine rejected user word")
}
