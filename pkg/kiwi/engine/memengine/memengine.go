// Package memengine is a small dictionary-driven engine with the same
// contract as the native Kiwi binding. It segments Hangul runs by greedy
// longest match against a lexicon and classifies everything else by Unicode
// class. It is meant for tests and for binaries built without the native
// library; it does not attempt real disambiguation.
package memengine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// LexiconFile is the lexicon looked up inside the model directory.
const LexiconFile = "lexicon.yaml"

// Word is one lexicon entry.
type Word struct {
	Form string `yaml:"form"`
	Tag  string `yaml:"tag"`
}

// Loader opens builders from a model directory.
//
// Expected lexicon format:
//
//	words:
//	  - form: 학교
//	    tag: NNG
//	  - form: 에
//	    tag: JKB
type Loader struct {
	// Words are added to every builder before the lexicon file.
	Words []Word
}

// NewBuilder implements engine.Loader. The model directory must exist; the
// lexicon file inside it is optional.
func (l Loader) NewBuilder(cfg engine.Config) (engine.Builder, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, fmt.Errorf("%w: empty model path", internalerr.ErrInvalidConfig)
	}
	info, err := os.Stat(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("model path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model path %s: not a directory", cfg.ModelPath)
	}

	b := NewBuilder()
	if err := b.addWords(l.Words); err != nil {
		return nil, err
	}

	words, err := LoadLexicon(filepath.Join(cfg.ModelPath, LexiconFile))
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	if err := b.addWords(words); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadLexicon reads a YAML lexicon file.
func LoadLexicon(path string) ([]Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lex struct {
		Words []Word `yaml:"words"`
	}
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	return lex.Words, nil
}

type entry struct {
	tag   tag.Tag
	score float32
}

// Builder collects words until Build.
type Builder struct {
	words map[string]entry
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{words: make(map[string]entry)}
}

func (b *Builder) addWords(words []Word) error {
	for _, w := range words {
		t, err := tag.Parse(w.Tag)
		if err != nil {
			return fmt.Errorf("lexicon word %q: %w", w.Form, err)
		}
		if err := b.AddWord(w.Form, t, 0); err != nil {
			return err
		}
	}
	return nil
}

// AddWord implements engine.Builder. A word already present is replaced
// only by an entry with an equal or higher score.
func (b *Builder) AddWord(word string, t tag.Tag, score float32) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return fmt.Errorf("%w: empty word", internalerr.ErrInvalidInput)
	}
	if !t.Known() {
		return fmt.Errorf("word %q: %w: %q", word, internalerr.ErrUnknownTag, t)
	}
	if prev, ok := b.words[word]; ok && prev.score > score {
		return nil
	}
	b.words[word] = entry{tag: t, score: score}
	return nil
}

// Build implements engine.Builder. The builder may keep being used; the
// engine gets its own copy of the lexicon.
func (b *Builder) Build() (engine.Engine, error) {
	e := &Engine{words: make(map[string]tag.Tag, len(b.words))}
	for w, ent := range b.words {
		e.words[w] = ent.tag
		if n := utf8.RuneCountInString(w); n > e.maxLen {
			e.maxLen = n
		}
	}
	return e, nil
}

// Engine is immutable after Build and safe for concurrent Analyze calls.
type Engine struct {
	words  map[string]tag.Tag
	maxLen int
}

// Close implements engine.Engine.
func (e *Engine) Close() error { return nil }

// Analyze implements engine.Engine.
func (e *Engine) Analyze(text string) ([]engine.Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", internalerr.ErrAnalysis)
	}

	runes := []rune(text)
	var tokens []engine.Token

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.Is(unicode.Hangul, r):
			j := runEnd(runes, i, func(r rune) bool { return unicode.Is(unicode.Hangul, r) })
			tokens = e.segment(tokens, runes, i, j)
			i = j
		case unicode.IsDigit(r):
			j := runEnd(runes, i, unicode.IsDigit)
			tokens = append(tokens, token(runes, i, j, tag.SN))
			i = j
		case unicode.Is(unicode.Latin, r):
			j := runEnd(runes, i, func(r rune) bool { return unicode.Is(unicode.Latin, r) })
			tokens = append(tokens, token(runes, i, j, tag.SL))
			i = j
		case unicode.Is(unicode.Han, r):
			j := runEnd(runes, i, func(r rune) bool { return unicode.Is(unicode.Han, r) })
			tokens = append(tokens, token(runes, i, j, tag.SH))
			i = j
		default:
			tokens = append(tokens, token(runes, i, i+1, symbolTag(r)))
			i++
		}
	}
	return tokens, nil
}

// segment splits the Hangul run runes[start:end] by greedy longest match.
// Unmatched stretches become a single proper-noun token.
func (e *Engine) segment(tokens []engine.Token, runes []rune, start, end int) []engine.Token {
	unknown := -1
	flush := func(at int) {
		if unknown >= 0 {
			tokens = append(tokens, token(runes, unknown, at, tag.NNP))
			unknown = -1
		}
	}

	for k := start; k < end; {
		n := min(e.maxLen, end-k)
		matched := false
		for ; n > 0; n-- {
			if t, ok := e.words[string(runes[k:k+n])]; ok {
				flush(k)
				tokens = append(tokens, token(runes, k, k+n, t))
				k += n
				matched = true
				break
			}
		}
		if !matched {
			if unknown < 0 {
				unknown = k
			}
			k++
		}
	}
	flush(end)
	return tokens
}

func runEnd(runes []rune, i int, in func(rune) bool) int {
	j := i + 1
	for j < len(runes) && in(runes[j]) {
		j++
	}
	return j
}

func token(runes []rune, start, end int, t tag.Tag) engine.Token {
	return engine.Token{Form: string(runes[start:end]), Tag: t, Start: start, End: end}
}

func symbolTag(r rune) tag.Tag {
	switch r {
	case '.', '!', '?':
		return tag.SF
	case ',', '/', ':', ';', '·':
		return tag.SP
	case '"', '\'', '“', '”', '‘', '’', '`':
		return tag.SS
	case '(', '[', '{', '<', '「', '『', '〈', '《':
		return tag.SSO
	case ')', ']', '}', '>', '」', '』', '〉', '》':
		return tag.SSC
	case '…':
		return tag.SE
	case '-', '~', '∼':
		return tag.SO
	}
	return tag.SW
}
