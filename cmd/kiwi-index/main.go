// Command kiwi-index analyzes a JSONL corpus into a SQLite token index and
// optionally runs a query against it.
//
//	kiwi-index -db index.db -data docs.jsonl
//	kiwi-index -db index.db -query "서울의 학교" -phrase
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/kiwi-analysis/internal/app"
	"github.com/cognicore/kiwi-analysis/internal/corpus"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/cache"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/index"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store/sqlite"
)

type options struct {
	configPath   string
	settingsPath string
	modelPath    string
	dbPath       string
	dataPath     string
	query        string
	phrase       bool
	tags         string
	limit        int
	workers      int
}

type hitLine struct {
	ID      string   `json:"id"`
	URL     string   `json:"url,omitempty"`
	Title   string   `json:"title,omitempty"`
	Matches []string `json:"matches"`
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "App config YAML (optional; env otherwise)")
	flag.StringVar(&opts.settingsPath, "settings", "", "Analyzer settings YAML (overrides KIWI_SETTINGS)")
	flag.StringVar(&opts.modelPath, "model", "", "Model directory (overrides settings)")
	flag.StringVar(&opts.dbPath, "db", "", "Database path (overrides KIWI_STORE_PATH)")
	flag.StringVar(&opts.dataPath, "data", "", "Input JSONL file to ingest")
	flag.StringVar(&opts.query, "query", "", "Query to run after ingesting")
	flag.BoolVar(&opts.phrase, "phrase", false, "Match the query as a phrase")
	flag.StringVar(&opts.tags, "tags", "", "Comma-separated tags to restrict matches to")
	flag.IntVar(&opts.limit, "limit", 10, "Maximum hits")
	flag.IntVar(&opts.workers, "workers", 4, "Concurrent ingest workers")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("kiwi-index failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.dataPath == "" && opts.query == "" {
		return fmt.Errorf("nothing to do: pass -data and/or -query")
	}

	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.settingsPath != "" {
		cfg.SettingsPath = opts.settingsPath
	}
	if opts.modelPath != "" {
		cfg.ModelPath = opts.modelPath
	}
	if opts.dbPath != "" {
		cfg.StorePath = opts.dbPath
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

	st, err := sqlite.OpenSQLite(ctx, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open index %s: %w", cfg.StorePath, err)
	}
	defer st.Close()

	ix := index.New(st, analyzer, index.WithLogger(logger))

	if opts.dataPath != "" {
		if err := ingest(ctx, ix, opts, logger); err != nil {
			return err
		}
	}
	if opts.query != "" {
		return search(ctx, ix, opts, stdout)
	}
	return nil
}

func ingest(ctx context.Context, ix *index.Index, opts options, logger *slog.Logger) error {
	docs, err := corpus.LoadJSONL(opts.dataPath, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded documents", "count", len(docs), "file", opts.dataPath)

	var ingested, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))
	for i, d := range docs {
		g.Go(func() error {
			if _, err := ix.Ingest(gctx, d); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// One bad document does not stop the run.
				logger.Warn("failed to ingest document", "index", i, "url", d.URL, "error", err)
				failed.Add(1)
				return nil
			}
			if n := ingested.Add(1); n%100 == 0 {
				logger.Info("ingest progress", "done", n, "total", len(docs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("indexing complete", "ingested", ingested.Load(), "failed", failed.Load())
	return nil
}

func search(ctx context.Context, ix *index.Index, opts options, stdout io.Writer) error {
	var tags []string
	for _, t := range strings.Split(opts.tags, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}

	hits, err := ix.Search(ctx, opts.query, index.SearchOptions{Tags: tags, Phrase: opts.phrase, Limit: opts.limit})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	for _, h := range hits {
		line := hitLine{ID: h.Doc.ID, URL: h.Doc.URL, Title: h.Doc.Title}
		for _, m := range h.Matches {
			line.Matches = append(line.Matches, fmt.Sprintf("%s/%s@%d:%d-%d", m.Term, m.Tag, m.Position, m.Start, m.End))
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
