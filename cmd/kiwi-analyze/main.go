// Command kiwi-analyze runs the analysis pipeline over text and prints one
// JSON token per line.
//
//	kiwi-analyze -model ./models/base "나는 학교에 갔다."
//	cat docs.txt | kiwi-analyze -settings analyzer.yaml
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/kiwi-analysis/internal/app"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/analysis"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/cache"
)

type tokenLine struct {
	Doc int `json:"doc"`
	analysis.Token
}

type endLine struct {
	Doc    int             `json:"doc"`
	Tokens int             `json:"tokens"`
	End    analysis.Offset `json:"end"`
}

func main() {
	var (
		configPath   = flag.String("config", "", "App config YAML (optional; env otherwise)")
		settingsPath = flag.String("settings", "", "Analyzer settings YAML (overrides KIWI_SETTINGS)")
		modelPath    = flag.String("model", "", "Model directory (overrides settings)")
		showEnd      = flag.Bool("end", false, "Print the final offset after each document")
	)
	flag.Parse()

	if err := run(*configPath, *settingsPath, *modelPath, *showEnd, flag.Args(), os.Stdin, os.Stdout); err != nil {
		slog.Error("kiwi-analyze failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, settingsPath, modelPath string, showEnd bool, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	logger := app.NewLogger(cfg.Log, nil)

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	engines := cache.New(app.DefaultLoader(), cache.WithLogger(logger))
	defer engines.Close()

	analyzer, err := kiwi.NewFactory(engines).NewAnalyzer(settings)
	if err != nil {
		return err
	}
	logger.Debug("analyzer ready", "engine", app.EngineName, "model", settings.ModelPath)

	out := bufio.NewWriter(stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	docNo := 0
	analyze := func(text string) error {
		docNo++
		ts, err := analyzer.TokenStream(text)
		if err != nil {
			return fmt.Errorf("document %d: %w", docNo, err)
		}
		defer ts.Close()

		n := 0
		for {
			ok, err := ts.Next()
			if err != nil {
				return fmt.Errorf("document %d: %w", docNo, err)
			}
			if !ok {
				break
			}
			n++
			if err := enc.Encode(tokenLine{Doc: docNo, Token: *ts.Token()}); err != nil {
				return err
			}
		}
		final, err := ts.End()
		if err != nil {
			return err
		}
		if showEnd {
			return enc.Encode(endLine{Doc: docNo, Tokens: n, End: final})
		}
		return nil
	}

	if len(args) > 0 {
		return analyze(strings.Join(args, " "))
	}

	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		if err := analyze(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}
