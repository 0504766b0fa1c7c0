// Package charfilter rewrites input text before the engine sees it and keeps
// enough bookkeeping to translate engine offsets back to the caller's text.
//
// All offsets are rune offsets. A filter walks its input as a sequence of
// segments, each copied, replaced or removed; Mapping records where the
// cumulative difference between output and input positions changes.
package charfilter

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
)

// Corrector translates offsets in filtered text to offsets in the text the
// filter received. Start and end offsets differ at segment boundaries: a
// start offset belongs to the segment beginning there, an end offset to the
// segment ending there.
type Corrector interface {
	CorrectStart(off int) int
	CorrectEnd(off int) int
}

// CharFilter transforms text and reports how to correct offsets.
type CharFilter interface {
	Filter(text string) (string, Corrector)
}

// Filter names accepted by New.
const (
	NameNFC       = "nfc"
	NameHTMLStrip = "html_strip"
)

// New returns the filter registered under name.
func New(name string) (CharFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameNFC:
		return NFC{}, nil
	case NameHTMLStrip:
		return HTMLStrip{}, nil
	}
	return nil, fmt.Errorf("%w: unknown char filter %q", internalerr.ErrInvalidConfig, name)
}

// Apply runs filters in order and returns the final text with a corrector
// mapping its offsets to the original text.
func Apply(text string, filters []CharFilter) (string, Corrector) {
	if len(filters) == 0 {
		return text, Identity
	}
	cs := make(chain, 0, len(filters))
	for _, f := range filters {
		var c Corrector
		text, c = f.Filter(text)
		cs = append(cs, c)
	}
	return text, cs
}

// Identity leaves offsets unchanged.
var Identity Corrector = &Mapping{}

// chain corrects through stacked filters, innermost (last applied) first.
type chain []Corrector

func (c chain) CorrectStart(off int) int {
	for i := len(c) - 1; i >= 0; i-- {
		off = c[i].CorrectStart(off)
	}
	return off
}

func (c chain) CorrectEnd(off int) int {
	for i := len(c) - 1; i >= 0; i-- {
		off = c[i].CorrectEnd(off)
	}
	return off
}

type entry struct {
	off  int
	diff int
}

// Mapping is a sorted record of offset differences. The zero value is the
// identity mapping.
type Mapping struct {
	starts []entry // diff applying from off onwards
	ends   []entry // exact end positions of resized segments
}

// CorrectStart implements Corrector.
func (m *Mapping) CorrectStart(off int) int {
	i := sort.Search(len(m.starts), func(i int) bool { return m.starts[i].off > off }) - 1
	if i < 0 {
		return off
	}
	return off + m.starts[i].diff
}

// CorrectEnd implements Corrector.
func (m *Mapping) CorrectEnd(off int) int {
	i := sort.Search(len(m.ends), func(i int) bool { return m.ends[i].off >= off })
	if i < len(m.ends) && m.ends[i].off == off {
		return off + m.ends[i].diff
	}
	if off <= 0 {
		return m.CorrectStart(off)
	}
	return m.CorrectStart(off-1) + 1
}

// mapper builds filtered output segment by segment.
type mapper struct {
	out       strings.Builder
	m         Mapping
	inPos     int
	outPos    int
	startDiff int
}

func newMapper(sizeHint int) *mapper {
	w := &mapper{}
	w.out.Grow(sizeHint)
	return w
}

// segment emits out in place of in.
func (w *mapper) segment(in, out string) {
	inLen := utf8.RuneCountInString(in)
	outLen := utf8.RuneCountInString(out)

	if outLen > 0 {
		if d := w.inPos - w.outPos; d != w.startDiff {
			w.m.starts = append(w.m.starts, entry{off: w.outPos, diff: d})
			w.startDiff = d
		}
		w.out.WriteString(out)
		if inLen != outLen {
			end := w.outPos + outLen
			w.m.ends = append(w.m.ends, entry{off: end, diff: w.inPos + inLen - end})
		}
	}
	w.inPos += inLen
	w.outPos += outLen
}

func (w *mapper) result() (string, Corrector) {
	return w.out.String(), &w.m
}
