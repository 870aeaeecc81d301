package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/CTAG07/runechain/pkg/corpus"
	"github.com/CTAG07/runechain/pkg/markov"
	"github.com/natefinch/atomic"
)

// library opens the corpus library on first use.
func (a *App) library() (*corpus.Library, error) {
	if a.lib != nil {
		return a.lib, nil
	}
	if a.config.DatabasePath == "" {
		return nil, errors.New("no database path configured")
	}

	if err := os.MkdirAll(filepath.Dir(a.config.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := initDB(a.config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up database schema: %w", err)
	}
	lib, err := corpus.NewLibrary(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create corpus library: %w", err)
	}
	lib.SetLogger(a.logger)

	a.db = db
	a.lib = lib
	return lib, nil
}

func (a *App) normalizer() *corpus.Normalizer {
	cfg := a.config.Normalize
	return corpus.NewNormalizer(
		corpus.WithKeepParagraphs(cfg.KeepParagraphs),
		corpus.WithParagraphBreak(cfg.ParagraphBreak),
		corpus.WithMaxLineSize(cfg.MaxLineSize),
	)
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// loadCorpus returns the corpus text selected by -corpus-file or -corpus and
// a name describing where it came from.
func (a *App) loadCorpus(ctx context.Context, flags *cliFlags) (string, string, error) {
	switch {
	case flags.corpusFile != "" && flags.corpusName != "":
		return "", "", errors.New("use either -corpus-file or -corpus, not both")

	case flags.corpusFile != "":
		f, err := openInput(flags.corpusFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to open corpus file: %w", err)
		}
		defer func() { _ = f.Close() }()

		text, err := a.normalizer().Normalize(f)
		if err != nil {
			return "", "", fmt.Errorf("failed to read corpus file: %w", err)
		}
		return text, flags.corpusFile, nil

	case flags.corpusName != "":
		lib, err := a.library()
		if err != nil {
			return "", "", err
		}
		text, _, err := lib.Get(ctx, flags.corpusName)
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", fmt.Errorf("corpus '%s' not found", flags.corpusName)
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to load corpus '%s': %w", flags.corpusName, err)
		}
		return text, flags.corpusName, nil
	}

	return "", "", errors.New("a corpus is required: use -corpus-file or -corpus")
}

// buildModel builds a model from text and records its shape in the metrics.
func (a *App) buildModel(text string) *markov.Model {
	started := time.Now()
	model := markov.Build(markov.NewCorpus(text),
		markov.WithOrderCap(a.config.Generate.OrderCap),
		markov.WithBuildLogger(a.logger),
	)
	a.metrics.ObserveBuild(model.Stats(), time.Since(started))
	return model
}

func (a *App) generateOptions(stats *markov.RunStats) []markov.GenerateOption {
	cfg := a.config.Generate
	opts := []markov.GenerateOption{
		markov.WithLength(cfg.Length),
		markov.WithWindowReset(cfg.WindowReset),
		markov.WithSampleOptions(
			markov.WithTemperature(cfg.Temperature),
			markov.WithTopK(cfg.TopK),
		),
		markov.WithStats(stats),
	}
	if cfg.SeedText != "" {
		opts = append(opts, markov.WithSeedText(cfg.SeedText))
	}
	if cfg.RandSeed != 0 {
		opts = append(opts, markov.WithRandSeed(cfg.RandSeed))
	}
	return opts
}

func (a *App) generate(ctx context.Context, flags *cliFlags) error {
	text, source, err := a.loadCorpus(ctx, flags)
	if err != nil {
		return err
	}
	model := a.buildModel(text)

	var stats markov.RunStats
	opts := a.generateOptions(&stats)
	started := time.Now()

	if a.config.Generate.Count <= 1 && a.config.OutputPath == "" {
		if err = a.stream(ctx, model, opts); err != nil {
			return err
		}
	} else {
		outputs, err := model.GenerateMany(ctx, max(a.config.Generate.Count, 1), opts...)
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		if err = a.writeOutput(strings.Join(outputs, a.config.Generate.Separator)); err != nil {
			return err
		}
	}

	a.metrics.ObserveRun(stats, time.Since(started))
	a.logger.Info("Generation finished",
		slog.String("source", source),
		slog.Int("max_order", model.MaxOrder()),
		slog.Int("generated", stats.Generated),
		slog.Int("fallbacks", stats.Fallbacks),
		slog.Duration("elapsed", time.Since(started)),
	)

	a.recordRun(ctx, markov.ModelStats{MaxOrder: model.MaxOrder(), Contexts: model.Contexts()}, source, stats)
	return a.writeMetrics()
}

// stream writes a single run to stdout as it is generated.
func (a *App) stream(ctx context.Context, model *markov.Model, opts []markov.GenerateOption) error {
	runes, err := model.GenerateStream(ctx, opts...)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	w := bufio.NewWriter(a.stdout)
	for r := range runes {
		if _, err = w.WriteRune(r); err != nil {
			return err
		}
	}
	if err = ctx.Err(); err != nil {
		_ = w.Flush()
		return err
	}
	if err = w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// writeOutput writes data to the configured output file, replacing it
// atomically, or to stdout when no file is configured.
func (a *App) writeOutput(data string) error {
	if a.config.OutputPath == "" {
		_, err := fmt.Fprintln(a.stdout, data)
		return err
	}
	if err := atomic.WriteFile(a.config.OutputPath, strings.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	a.logger.Info("Output written", slog.String("path", a.config.OutputPath), slog.Int("bytes", len(data)))
	return nil
}

// recordRun stores the run in the library history. Failures are logged only.
func (a *App) recordRun(ctx context.Context, model markov.ModelStats, source string, stats markov.RunStats) {
	if a.config.DatabasePath == "" {
		return
	}
	lib, err := a.library()
	if err != nil {
		a.logger.Warn("Run not recorded", "error", err)
		return
	}
	err = lib.RecordRun(ctx, corpus.Run{
		Source:    source,
		MaxOrder:  model.MaxOrder,
		Contexts:  model.Contexts,
		Generated: stats.Generated,
		Fallbacks: stats.Fallbacks,
	})
	if err != nil {
		a.logger.Warn("Run not recorded", "error", err)
	}
}

func (a *App) writeMetrics() error {
	if a.config.MetricsPath == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.config.MetricsPath); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (a *App) inspect(ctx context.Context, flags *cliFlags) error {
	text, source, err := a.loadCorpus(ctx, flags)
	if err != nil {
		return err
	}
	model := a.buildModel(text)

	if flags.dump {
		var buf bytes.Buffer
		if err = model.ExportJSON(&buf); err != nil {
			return fmt.Errorf("failed to export model: %w", err)
		}
		if err = a.writeOutput(strings.TrimSuffix(buf.String(), "\n")); err != nil {
			return err
		}
		return a.writeMetrics()
	}

	stats := model.Stats()
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "source\t%s\n", source)
	_, _ = fmt.Fprintf(tw, "characters\t%d\n", stats.Characters)
	_, _ = fmt.Fprintf(tw, "bytes\t%d\n", stats.Bytes)
	_, _ = fmt.Fprintf(tw, "max order\t%d\n", stats.MaxOrder)
	_, _ = fmt.Fprintf(tw, "contexts\t%d\n", stats.Contexts)
	_, _ = fmt.Fprintf(tw, "transitions\t%d\n", stats.Transitions)
	for i, n := range stats.ContextsPerOrder {
		_, _ = fmt.Fprintf(tw, "order %d\t%d\n", i+1, n)
	}
	if err = tw.Flush(); err != nil {
		return err
	}
	return a.writeMetrics()
}

func (a *App) importCorpus(ctx context.Context, name, path string) error {
	lib, err := a.library()
	if err != nil {
		return err
	}

	f, err := openInput(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := lib.Import(ctx, name, f, a.normalizer())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "imported '%s': %d characters, %d bytes\n", info.Name, info.Characters, info.Bytes)
	return err
}

func (a *App) list(ctx context.Context) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	infos, err := lib.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list corpora: %w", err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tCHARACTERS\tBYTES\tIMPORTED")
	for _, info := range infos {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", info.Name, info.Characters, info.Bytes, info.ImportedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (a *App) remove(ctx context.Context, name string) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	err = lib.Remove(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("corpus '%s' not found", name)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "removed '%s'\n", name)
	return err
}

func (a *App) stats(ctx context.Context) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	stats, err := lib.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get library stats: %w", err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "corpora\t%d\n", len(stats.Corpora))
	_, _ = fmt.Fprintf(tw, "total characters\t%d\n", stats.TotalCharacters)
	_, _ = fmt.Fprintf(tw, "runs\t%d\n", stats.Runs)
	_, _ = fmt.Fprintf(tw, "total generated\t%d\n", stats.TotalGenerated)
	_, _ = fmt.Fprintf(tw, "total fallbacks\t%d\n", stats.TotalFallbacks)
	return tw.Flush()
}
