package charfilter

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// HTMLStrip removes markup, comments and script/style bodies and decodes
// character references. Block-level elements become a single space so
// words on either side do not merge.
type HTMLStrip struct{}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true,
	"title": true, "tr": true, "ul": true,
}

var charRef = regexp.MustCompile(`&(#[0-9]+;?|#[xX][0-9a-fA-F]+;?|[a-zA-Z][a-zA-Z0-9]*;?)`)

// Filter implements CharFilter.
func (HTMLStrip) Filter(text string) (string, Corrector) {
	if !strings.ContainsAny(text, "<&") {
		return text, Identity
	}

	w := newMapper(len(text))
	z := html.NewTokenizer(strings.NewReader(text))
	consumed := 0
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		// TagName lowercases the buffer in place; copy the raw bytes first.
		raw := string(z.Raw())
		consumed += len(raw)

		switch tt {
		case html.TextToken:
			if skipDepth > 0 {
				w.segment(raw, "")
				continue
			}
			unescapeText(w, raw)
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			tagName := string(name)
			if tagName == "script" || tagName == "style" {
				switch tt {
				case html.StartTagToken:
					skipDepth++
				case html.EndTagToken:
					if skipDepth > 0 {
						skipDepth--
					}
				}
			}
			if blockElements[tagName] {
				w.segment(raw, " ")
			} else {
				w.segment(raw, "")
			}
		default:
			// comments, doctype
			w.segment(raw, "")
		}
	}

	// An unterminated construct at EOF yields no token; drop it.
	if consumed < len(text) {
		w.segment(text[consumed:], "")
	}
	return w.result()
}

// unescapeText decodes character references one at a time so offsets inside
// the text stay exact.
func unescapeText(w *mapper, raw string) {
	last := 0
	for _, loc := range charRef.FindAllStringIndex(raw, -1) {
		if loc[0] > last {
			w.segment(raw[last:loc[0]], raw[last:loc[0]])
		}
		ref := raw[loc[0]:loc[1]]
		w.segment(ref, html.UnescapeString(ref))
		last = loc[1]
	}
	if last < len(raw) {
		w.segment(raw[last:], raw[last:])
	}
}
