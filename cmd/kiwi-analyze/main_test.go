package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine/memengine"
)

const lexicon = `words:
  - {form: 나, tag: NP}
  - {form: 는, tag: JX}
  - {form: 학교, tag: NNG}
  - {form: 에, tag: JKB}
  - {form: 갔, tag: VV}
  - {form: 다, tag: EF}
`

func writeModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, memengine.LexiconFile), []byte(lexicon), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var recs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad JSON line %q: %v", line, err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestRunArgs(t *testing.T) {
	var out bytes.Buffer
	err := run("", "", writeModel(t), true, []string{"나는", "학교에", "갔다."}, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	recs := decodeLines(t, out.String())
	if len(recs) != 4 {
		t.Fatalf("expected 3 tokens and an end record, got %d: %s", len(recs), out.String())
	}
	if recs[1]["term"] != "학교" || recs[1]["tag"] != "NNG" {
		t.Errorf("unexpected second token: %v", recs[1])
	}
	if recs[1]["position_increment"] != float64(2) {
		t.Errorf("particle gap not reflected: %v", recs[1])
	}
	end, ok := recs[3]["end"].(map[string]any)
	if !ok || end["end"] != float64(10) {
		t.Errorf("unexpected end record: %v", recs[3])
	}
}

func TestRunStdin(t *testing.T) {
	var out bytes.Buffer
	err := run("", "", writeModel(t), false, nil, strings.NewReader("학교\n\n나는\n"), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	recs := decodeLines(t, out.String())
	if len(recs) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %s", len(recs), out.String())
	}
	if recs[0]["doc"] != float64(1) || recs[1]["doc"] != float64(3) {
		t.Errorf("documents should be numbered per input line: %v", recs)
	}
}

func TestRunInvalidInput(t *testing.T) {
	var out bytes.Buffer
	err := run("", "", writeModel(t), false, []string{"학교\xff"}, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected analysis error")
	}
	if out.Len() != 0 {
		t.Errorf("no tokens should be printed for a failed document: %s", out.String())
	}
}

func TestRunMissingModel(t *testing.T) {
	var out bytes.Buffer
	err := run("", "", filepath.Join(t.TempDir(), "none"), false, []string{"학교"}, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected construction error")
	}
}
