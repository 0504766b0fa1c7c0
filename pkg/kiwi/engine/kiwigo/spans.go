package kiwigo

import "unicode/utf16"

// span is a token as the native library reports it: a UTF-16 position and
// the rune width of its form.
type span struct {
	pos   int
	width int
}

type runeSpan struct {
	start, end int
}

// runeSpans converts native positions to rune offsets into text. Forms are
// lemmas (갔다 → 가 았 다), so a form's width may differ from its surface
// span; each end is bounded by the next later start and the text length so
// tokens stay inside the text without running into their successor.
func runeSpans(raw []span, text []rune) []runeSpan {
	length := len(text)
	if length == 0 {
		return nil
	}
	toRune := utf16ToRune(text)

	out := make([]runeSpan, len(raw))
	for i, s := range raw {
		start := length - 1
		if s.pos >= 0 && s.pos < len(toRune) {
			start = min(toRune[s.pos], length-1)
		}
		out[i].start = start
	}
	for i, s := range raw {
		start := out[i].start
		limit := length
		for _, next := range out[i+1:] {
			if next.start > start {
				limit = next.start
				break
			}
		}
		out[i].end = min(start+max(s.width, 1), limit)
	}
	return out
}

// utf16ToRune maps every UTF-16 code unit index of runes to its rune index.
// The native library reports positions in UTF-16 units.
func utf16ToRune(runes []rune) []int {
	m := make([]int, 0, len(runes)+1)
	for i, r := range runes {
		m = append(m, i)
		if utf16.RuneLen(r) == 2 {
			m = append(m, i)
		}
	}
	return append(m, len(runes))
}
