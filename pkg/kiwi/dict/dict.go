// Package dict loads user dictionaries: UTF-8 word lists applied to an
// engine builder before the engine is finalized.
//
// Format, one entry per line:
//
//	word<TAB>TAG[<TAB>score]
//
// Blank lines and lines starting with '#' are ignored. Bad lines are logged
// and skipped; only failing to open the file is fatal.
package dict

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// Entry is one user word.
type Entry struct {
	Word  string
	Tag   tag.Tag
	Score float32
}

// Load reads the dictionary file at path.
func Load(path string, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: user dictionary: %w", internalerr.ErrInvalidConfig, err)
	}
	defer f.Close()

	entries, err := Parse(f, logger.With("dictionary", path))
	if err != nil {
		return nil, fmt.Errorf("read user dictionary %s: %w", path, err)
	}
	return entries, nil
}

// maxLine bounds one dictionary line; longer lines are skipped.
const maxLine = 1 << 20

// Parse reads entries from r. It only fails on read errors.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var entries []Entry
	rd := bufio.NewReaderSize(r, maxLine)
	lineNo := 0
	for {
		raw, isPrefix, err := rd.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lineNo++
		if isPrefix {
			for isPrefix && err == nil {
				_, isPrefix, err = rd.ReadLine()
			}
			if err != nil && err != io.EOF {
				return nil, err
			}
			logger.Warn("skipping dictionary line: too long", "line", lineNo, "limit", maxLine)
			continue
		}

		line := strings.TrimSpace(string(raw))
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, ok := parseLine(line, lineNo, logger)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func parseLine(line string, lineNo int, logger *slog.Logger) (Entry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		logger.Warn("skipping dictionary line: expected word and tag", "line", lineNo, "text", line)
		return Entry{}, false
	}

	word := strings.TrimSpace(fields[0])

	t, err := tag.Parse(fields[1])
	if err != nil {
		logger.Warn("skipping dictionary line: unknown tag", "line", lineNo, "word", word, "tag", fields[1])
		return Entry{}, false
	}

	var score float32
	if len(fields) > 2 {
		raw := strings.TrimSpace(fields[2])
		if raw != "" {
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				logger.Warn("invalid dictionary score, using 0", "line", lineNo, "word", word, "score", raw)
			} else {
				score = float32(v)
			}
		}
	}

	return Entry{Word: word, Tag: t, Score: score}, true
}

// Apply adds entries to b. Entries the builder rejects are logged and
// skipped. It returns the number of words added.
func Apply(b engine.Builder, entries []Entry, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	added := 0
	for _, e := range entries {
		if err := b.AddWord(e.Word, e.Tag, e.Score); err != nil {
			logger.Warn("engine rejected user word", "word", e.Word, "tag", e.Tag, "error", err)
			continue
		}
		added++
	}
	return added
}
