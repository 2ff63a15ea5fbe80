// Command sirna-offtarget is a thin local harness over the engine
// library: it builds a seed index from FASTA transcript files and runs
// ad hoc off-target analyses against it, mirroring the teacher's
// cmd/ipcr/main.go + internal/cli flag-parsing shape. The job-runner/HTTP
// surface that would drive this engine in production is out of scope.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap/zapcore"

	"sirna-offtarget/internal/api"
	"sirna-offtarget/internal/cache"
	"sirna-offtarget/internal/config"
	"sirna-offtarget/internal/export"
	"sirna-offtarget/internal/fasta"
	"sirna-offtarget/internal/logging"
	"sirna-offtarget/internal/orchestrator"
	"sirna-offtarget/internal/seedindex"
	"sirna-offtarget/internal/store"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	if len(argv) == 0 {
		usage()
		return 2
	}
	switch argv[0] {
	case "build":
		return runBuild(argv[1:])
	case "analyze":
		return runAnalyze(argv[1:])
	case "-h", "--help", "help":
		usage()
		return 0
	case "-v", "--version", "version":
		fmt.Println("sirna-offtarget version " + version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", argv[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `sirna-offtarget: siRNA off-target prediction engine

Usage:
  sirna-offtarget build -db PATH -fasta FILE [-fasta FILE ...]
  sirna-offtarget analyze -db PATH -generation GEN -guide SEQ [-guide SEQ ...] [-name NAME] [flags]
  (multiple -guide flags run a batch analysis and emit JSONL instead of -output)

`)
}

func runBuild(argv []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite database path [*]")
	var fastaFiles stringSlice
	fs.Var(&fastaFiles, "fasta", "FASTA transcript file (repeatable, '-' for stdin)")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error [info]")
	if err := fs.Parse(argv); err != nil {
		return exitCodeForFlagErr(err)
	}
	if *dbPath == "" || len(fastaFiles) == 0 {
		fmt.Fprintln(os.Stderr, "build: -db and at least one -fasta are required")
		return 2
	}
	if err := initLogging(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() { _ = logging.Sync() }()

	ctx, cancel := withSignalCancel(context.Background())
	defer cancel()

	s, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer s.Close()

	for _, path := range fastaFiles {
		err := fasta.StreamPath(ctx, path, func(rec fasta.Record) error {
			return s.Put(ctx, store.Transcript{
				TranscriptID: rec.ID,
				GeneSymbol:   rec.GeneSymbol,
				GeneID:       rec.GeneID,
				Sequence:     rec.Seq,
				Length:       len(rec.Seq),
			})
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "ingest %s: %v\n", path, err)
			return 1
		}
	}

	generation, err := seedindex.Build(ctx, s, func(p seedindex.Progress) {
		logging.Info("build progress")
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(generation)
	return 0
}

func runAnalyze(argv []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite database path [*]")
	generation := fs.String("generation", "", "index generation id (from `build`) [*]")
	var guides stringSlice
	fs.Var(&guides, "guide", "guide siRNA sequence, 19-23 nt (repeatable; JSONL output when given more than once) [*]")
	name := fs.String("name", "guide", "name for this analysis, ignored when -guide is repeated [guide]")
	maxMM := fs.Int("max-seed-mismatches", 1, "0, 1, or 2 [1]")
	allowWobble := fs.Bool("allow-wobble", true, "allow G:U wobble tolerance [true]")
	energyThreshold := fs.Float64("energy-threshold", -10.0, "drop candidates with deltaG above this [-10.0]")
	restrictUTR3 := fs.Bool("restrict-utr3", false, "restrict search to annotated 3'UTR [false]")
	output := fs.String("output", "csv", "output format: csv|json [csv]")
	workers := fs.Int("workers", 0, "worker pool size (0 = use SIRNA_WORKERS, default 4) [0]")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error [info]")
	if err := fs.Parse(argv); err != nil {
		return exitCodeForFlagErr(err)
	}
	if *dbPath == "" || *generation == "" || len(guides) == 0 {
		fmt.Fprintln(os.Stderr, "analyze: -db, -generation, and at least one -guide are required")
		return 2
	}
	if err := initLogging(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() { _ = logging.Sync() }()

	ctx, cancel := withSignalCancel(context.Background())
	defer cancel()

	s, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer s.Close()

	if err := seedindex.RequireReady(ctx, s, *generation); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	c, err := cache.New(0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg := config.Load()
	w := *workers
	if w == 0 {
		w = cfg.Workers
	}

	eng := orchestrator.Engine{
		Store:        s,
		Generation:   *generation,
		Workers:      w,
		CandidateCap: cfg.CandidateCap,
		Cache:        c,
	}

	req := api.DefaultRequest()
	req.MaxSeedMismatches = *maxMM
	req.AllowWobble = *allowWobble
	req.EnergyThreshold = *energyThreshold
	req.RestrictToUTR3 = *restrictUTR3

	if len(guides) > 1 {
		reqs := make([]api.SiRNARequest, len(guides))
		for i, g := range guides {
			reqs[i] = api.SiRNARequest{Name: fmt.Sprintf("guide-%d", i+1), Sequence: g}
		}
		results, err := eng.AnalyzeBatch(ctx, reqs, req)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := export.WriteJSONL(os.Stdout, results); err != nil {
			if export.IsBrokenPipe(err) {
				return 0
			}
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	result, err := eng.AnalyzeOne(ctx, *name, guides[0], req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var writeErr error
	switch strings.ToLower(*output) {
	case "json":
		writeErr = export.WriteJSON(os.Stdout, result)
	default:
		writeErr = export.WriteCSV(os.Stdout, result)
	}
	if writeErr != nil {
		if export.IsBrokenPipe(writeErr) {
			return 0
		}
		fmt.Fprintln(os.Stderr, writeErr)
		return 1
	}
	return 0
}

func initLogging(level string) error {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	return logging.Init(lvl)
}

// withSignalCancel returns a context canceled on SIGINT/SIGTERM, so a
// running build or analysis observes cancellation per §5.
func withSignalCancel(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func exitCodeForFlagErr(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}
