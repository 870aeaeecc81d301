package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/CTAG07/runechain/pkg/corpus"
	"github.com/CTAG07/runechain/pkg/metrics"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usage = `usage: runechain [command] [flags] [args]

commands:
  generate              build a model from a corpus and print generated text (default)
  inspect               build a model and print its statistics (-dump for the full table)
  import <name> <file>  normalize a text file ("-" for stdin) and store it in the library
  list                  list stored corpora
  remove <name>         remove a stored corpus and its run history
  stats                 print library statistics
  version               print version information

flags:
`

// cliFlags holds command-line values. Only flags that were actually set
// override the configuration file.
type cliFlags struct {
	configPath  string
	corpusFile  string
	corpusName  string
	output      string
	metrics     string
	database    string
	logLevel    string
	seedText    string
	length      int
	count       int
	orderCap    int
	topK        int
	windowReset int
	temperature float64
	randSeed    uint64
	dump        bool
}

func newFlagSet(name string, output io.Writer) (*flag.FlagSet, *cliFlags) {
	f := &cliFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		_, _ = fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configPath, "config", "./runechain.json", "path to the JSON or YAML configuration file")
	fs.StringVar(&f.corpusFile, "corpus-file", "", "read and normalize the corpus from this file (\"-\" for stdin)")
	fs.StringVar(&f.corpusName, "corpus", "", "use the named corpus from the library")
	fs.StringVar(&f.output, "output", "", "write output to this file instead of stdout")
	fs.StringVar(&f.metrics, "metrics", "", "write Prometheus textfile metrics to this path")
	fs.StringVar(&f.database, "db", "", "path to the corpus library database")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.seedText, "seed-text", "", "start generation from this text")
	fs.IntVar(&f.length, "length", 0, "number of characters to generate")
	fs.IntVar(&f.count, "count", 0, "number of independent outputs to generate")
	fs.IntVar(&f.orderCap, "order-cap", 0, "highest model order to build (0 for no cap)")
	fs.IntVar(&f.topK, "top-k", 0, "only sample among the k most frequent continuations")
	fs.IntVar(&f.windowReset, "window-reset", 0, "context length kept after an unknown context")
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature (1 reproduces the corpus distribution)")
	fs.Uint64Var(&f.randSeed, "rand-seed", 0, "random seed for reproducible output")
	fs.BoolVar(&f.dump, "dump", false, "inspect: write the frequency table as JSON")

	return fs, f
}

// applyFlags copies every flag that was set on the command line into config.
func applyFlags(fs *flag.FlagSet, f *cliFlags, config *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "output":
			config.OutputPath = f.output
		case "metrics":
			config.MetricsPath = f.metrics
		case "db":
			config.DatabasePath = f.database
		case "log-level":
			config.LogLevel = f.logLevel
		case "seed-text":
			config.Generate.SeedText = f.seedText
		case "length":
			config.Generate.Length = f.length
		case "count":
			config.Generate.Count = f.count
		case "order-cap":
			config.Generate.OrderCap = f.orderCap
		case "top-k":
			config.Generate.TopK = f.topK
		case "window-reset":
			config.Generate.WindowReset = f.windowReset
		case "temperature":
			config.Generate.Temperature = f.temperature
		case "rand-seed":
			config.Generate.RandSeed = f.randSeed
		}
	})
}

// App holds the dependencies shared by all commands.
type App struct {
	config  *Config
	logger  *slog.Logger
	stdout  io.Writer
	metrics *metrics.Metrics
	db      *sql.DB
	lib     *corpus.Library
}

// Close releases the library and its database, if they were opened.
func (a *App) Close() {
	if a.lib != nil {
		a.lib.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		_, _ = fmt.Fprintf(os.Stderr, "runechain: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run parses args, loads the configuration and dispatches to a command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	command := "generate"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	fs, flags := newFlagSet(command, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if command == "version" {
		_, err := fmt.Fprintf(stdout, "runechain %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return err
	}

	config, err := LoadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(fs, flags, config)

	app := &App{
		config:  config,
		logger:  newLogger(config.LogLevel, config.LogFormat),
		stdout:  stdout,
		metrics: metrics.New(),
	}
	defer app.Close()

	switch command {
	case "generate":
		return app.generate(ctx, flags)
	case "inspect":
		return app.inspect(ctx, flags)
	case "import":
		if fs.NArg() != 2 {
			return errors.New("import requires a corpus name and a file")
		}
		return app.importCorpus(ctx, fs.Arg(0), fs.Arg(1))
	case "list":
		return app.list(ctx)
	case "remove":
		if fs.NArg() != 1 {
			return errors.New("remove requires a corpus name")
		}
		return app.remove(ctx, fs.Arg(0))
	case "stats":
		return app.stats(ctx)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
