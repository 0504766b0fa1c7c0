// Package corpus reads JSONL document collections for the indexer.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/index"
)

// Item is one JSONL record. Body falls back to Text for feeds that use
// the older field name.
type Item struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Text  string `json:"text"`
}

// Doc converts the item to an index document.
func (it Item) Doc() index.Doc {
	body := it.Body
	if body == "" {
		body = it.Text
	}
	return index.Doc{URL: it.URL, Title: it.Title, Body: body}
}

const maxLine = 16 << 20

// LoadJSONL loads documents from a JSONL file.
func LoadJSONL(path string, logger *slog.Logger) ([]index.Doc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	docs, err := ReadJSONL(f, logger.With("file", path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// ReadJSONL reads documents from r. Malformed lines and records without a
// body are logged and skipped.
func ReadJSONL(r io.Reader, logger *slog.Logger) ([]index.Doc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var docs []index.Doc
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			logger.Warn("skipping malformed JSON", "line", lineNo, "error", err)
			continue
		}
		doc := item.Doc()
		if strings.TrimSpace(doc.Body) == "" {
			logger.Warn("skipping record without body", "line", lineNo, "url", item.URL)
			continue
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid items found")
	}
	return docs, nil
}
