package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sushant-115/pagesim/api/snapshot"
	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/mmu"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	"github.com/sushant-115/pagesim/core/simulation"
	"github.com/sushant-115/pagesim/internal/report"
	"github.com/sushant-115/pagesim/pkg/config"
	"github.com/sushant-115/pagesim/pkg/logger"
	"github.com/sushant-115/pagesim/pkg/telemetry"
)

var (
	// Command-line flags. When set they override the config file.
	configPath     = flag.String("config", "", "Path to a YAML config file")
	policy         = flag.String("policy", "FIFO", "Replacement policy: FIFO, OPT, MRU, RND or SC")
	frames         = flag.Int("frames", 100, "Number of RAM frames")
	pageSize       = flag.Int("page_size", 4000, "Page size in bytes")
	instructionsIn = flag.String("file", "", "Instruction file to replay; generated when empty")
	processes      = flag.Int("processes", 10, "Processes to generate")
	operations     = flag.Int("operations", 500, "Operations to generate")
	seed           = flag.Uint64("seed", 1, "Generator seed")
	randomSeed     = flag.Uint64("random_seed", 0, "RND policy seed; 0 picks one from the clock")
	cadence        = flag.Duration("cadence", 50*time.Millisecond, "Pause between steps")
	compareOpt     = flag.Bool("compare_opt", true, "Run OPT next to the selected policy")
	httpAddr       = flag.String("http_addr", "", "Serve /snapshot, /healthz and /metrics on this address")
	logLevel       = flag.String("log_level", "", "Log level (debug, info, warn, error)")
	outFile        = flag.String("out", "", "Write the operations of the run to this file")
	quiet          = flag.Bool("quiet", false, "Only print the final summary")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: invalid configuration: %v", err)
	}

	zlogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("CRITICAL: Can't initialize zap logger: %v", err)
	}
	defer zlogger.Sync()

	if err := run(cfg, zlogger, os.Stdout); err != nil {
		zlogger.Error("simulation failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "pagesim: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig starts from the file (or the defaults) and applies the flags the
// user set explicitly.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "policy":
			cfg.Memory.Policy = replacer.PolicyType(*policy)
		case "frames":
			cfg.Memory.TotalFrames = *frames
		case "page_size":
			cfg.Memory.PageSize = *pageSize
		case "file":
			cfg.Simulation.InstructionsFile = *instructionsIn
		case "processes":
			cfg.Simulation.Generator.Processes = *processes
		case "operations":
			cfg.Simulation.Generator.Operations = *operations
		case "seed":
			cfg.Simulation.Generator.Seed = *seed
		case "random_seed":
			cfg.Simulation.RandomSeed = *randomSeed
		case "cadence":
			cfg.Simulation.Cadence = *cadence
		case "compare_opt":
			cfg.Simulation.CompareOptimal = *compareOpt
		case "http_addr":
			cfg.HTTPAddr = *httpAddr
		case "log_level":
			cfg.Logger.Level = *logLevel
		}
	})

	policyType, err := replacer.ParsePolicyType(string(cfg.Memory.Policy))
	if err != nil {
		return cfg, err
	}
	cfg.Memory.Policy = policyType
	return cfg, cfg.Validate()
}

func run(cfg config.Config, zlogger *zap.Logger, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, shutdownTelemetry, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			zlogger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	ops, err := loadInstructions(cfg.Simulation)
	if err != nil {
		return err
	}
	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(instructions.Format(ops)+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write instructions to %s: %w", *outFile, err)
		}
	}

	runner, err := simulation.NewRunner(cfg.Memory, simulation.Options{
		Cadence:        cfg.Simulation.Cadence,
		CompareOptimal: cfg.Simulation.CompareOptimal,
		RandomSeed:     cfg.Simulation.RandomSeed,
	}, zlogger, tel)
	if err != nil {
		return err
	}

	snapshots := snapshot.NewServer(zlogger)
	if cfg.HTTPAddr != "" {
		srv := startHTTPServer(cfg.HTTPAddr, snapshots, zlogger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zlogger.Warn("http server shutdown failed", zap.Error(err))
			}
		}()
	}

	observe := func(step simulation.Step) {
		snapshots.Observe(step)
		if !*quiet {
			fmt.Fprintln(out, report.StepLine(step))
		}
	}

	result, err := runner.Run(ctx, ops, observe)
	if result != nil {
		fmt.Fprintf(out, "\nrun %s: %d of %d operations applied\n\n", result.RunID, result.Steps, len(ops))
		stats := make([]mmu.Stats, len(result.Final))
		for i, snap := range result.Final {
			stats[i] = snap.Stats
		}
		if werr := report.WriteStats(out, stats); werr != nil {
			zlogger.Warn("failed to write summary", zap.Error(werr))
		}
	}
	if errors.Is(err, context.Canceled) {
		zlogger.Info("simulation interrupted")
		return nil
	}
	return err
}

func loadInstructions(cfg config.SimulationConfig) ([]instructions.Op, error) {
	if cfg.InstructionsFile == "" {
		return instructions.Generate(cfg.Generator)
	}
	f, err := os.Open(cfg.InstructionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open instructions file: %w", err)
	}
	defer f.Close()
	ops, err := instructions.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfg.InstructionsFile, err)
	}
	return ops, nil
}

func startHTTPServer(addr string, snapshots *snapshot.Server, zlogger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/snapshot", snapshots.Handler())
	mux.Handle("/healthz", snapshots.Handler())
	mux.Handle("/metrics", telemetry.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zlogger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlogger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return srv
}
