package kiwigo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuneSpansBoundLemmaForms(t *testing.T) {
	// 나는 학교에 갔다: 갔 is reported as 가/VV + 았/EP, both at position 7.
	text := []rune("나는 학교에 갔다")
	raw := []span{
		{pos: 0, width: 1}, // 나
		{pos: 1, width: 1}, // 는
		{pos: 3, width: 2}, // 학교
		{pos: 5, width: 1}, // 에
		{pos: 7, width: 1}, // 가
		{pos: 7, width: 1}, // 았
		{pos: 8, width: 1}, // 다
	}
	want := []runeSpan{{0, 1}, {1, 2}, {3, 5}, {5, 6}, {7, 8}, {7, 8}, {8, 9}}
	assert.Equal(t, want, runeSpans(raw, text))
}

func TestRuneSpansClampWideForms(t *testing.T) {
	// 해 is reported as 하/VV + 어/EC; the last form is wider than the text
	// left after its start.
	text := []rune("해요")
	raw := []span{
		{pos: 0, width: 1}, // 하
		{pos: 0, width: 1}, // 어
		{pos: 1, width: 3}, // wider than what is left
	}
	want := []runeSpan{{0, 1}, {0, 1}, {1, 2}}
	assert.Equal(t, want, runeSpans(raw, text))
}

func TestRuneSpansOverlapBoundedByNextStart(t *testing.T) {
	text := []rune("가나다라")
	raw := []span{{pos: 0, width: 3}, {pos: 1, width: 1}}
	assert.Equal(t, []runeSpan{{0, 1}, {1, 2}}, runeSpans(raw, text))
}

func TestRuneSpansSurrogatePairs(t *testing.T) {
	// U+1F600 takes two UTF-16 units, so 학교 starts at unit 3 but rune 2.
	text := []rune("😀 학교")
	raw := []span{{pos: 0, width: 1}, {pos: 3, width: 2}}
	assert.Equal(t, []runeSpan{{0, 1}, {2, 4}}, runeSpans(raw, text))
}

func TestRuneSpansEmptyText(t *testing.T) {
	assert.Nil(t, runeSpans([]span{{pos: 0, width: 1}}, nil))
}
