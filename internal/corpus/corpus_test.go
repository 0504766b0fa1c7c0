package corpus

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/index"
)

func TestReadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"url":"https://example.com/1","title":"학교","body":"나는 학교에 갔다."}`,
		``,
		`{not json}`,
		`{"url":"https://example.com/2","text":"서울의 학교"}`,
		`{"url":"https://example.com/3","title":"empty"}`,
	}, "\n")

	var logs bytes.Buffer
	docs, err := ReadJSONL(strings.NewReader(input), slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}

	want := []index.Doc{
		{URL: "https://example.com/1", Title: "학교", Body: "나는 학교에 갔다."},
		{URL: "https://example.com/2", Body: "서울의 학교"},
	}
	if len(docs) != len(want) {
		t.Fatalf("expected %d docs, got %d", len(want), len(docs))
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Errorf("doc %d: got %+v, want %+v", i, docs[i], want[i])
		}
	}

	if !strings.Contains(logs.String(), "skipping malformed JSON") || !strings.Contains(logs.String(), "line=3") {
		t.Errorf("malformed line not reported: %s", logs.String())
	}
	if !strings.Contains(logs.String(), "skipping record without body") {
		t.Errorf("empty record not reported: %s", logs.String())
	}
}

func TestReadJSONLNoValidItems(t *testing.T) {
	if _, err := ReadJSONL(strings.NewReader("\n{bad}\n"), nil); err == nil {
		t.Error("expected error when nothing could be read")
	}
}

func TestLoadJSONLMissingFile(t *testing.T) {
	_, err := LoadJSONL(filepath.Join(t.TempDir(), "missing.jsonl"), slog.Default())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	if err := os.WriteFile(path, []byte(`{"body":"학교"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	docs, err := LoadJSONL(path, slog.Default())
	if err != nil {
		t.Fatalf("LoadJSONL: %v", err)
	}
	if len(docs) != 1 || docs[0].Body != "학교" {
		t.Errorf("unexpected docs: %+v", docs)
	}
}
