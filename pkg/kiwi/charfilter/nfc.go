package charfilter

import (
	"golang.org/x/text/unicode/norm"
)

// NFC composes text to Unicode normalization form C. Decomposed Hangul
// jamo sequences (common in text produced on macOS) become precomposed
// syllables the engine recognizes.
type NFC struct{}

// Filter implements CharFilter.
func (NFC) Filter(text string) (string, Corrector) {
	if norm.NFC.IsNormalString(text) {
		return text, Identity
	}

	var it norm.Iter
	it.InitString(norm.NFC, text)
	w := newMapper(len(text))
	for !it.Done() {
		start := it.Pos()
		seg := string(it.Next())
		w.segment(text[start:it.Pos()], seg)
	}
	return w.result()
}
