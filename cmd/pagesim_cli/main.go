package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/mmu"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	"github.com/sushant-115/pagesim/internal/report"
	"github.com/sushant-115/pagesim/pkg/logger"
)

var (
	policy     = flag.String("policy", "FIFO", "Replacement policy: FIFO, MRU, RND or SC")
	frames     = flag.Int("frames", 100, "Number of RAM frames")
	pageSize   = flag.Int("page_size", 4000, "Page size in bytes")
	randomSeed = flag.Uint64("random_seed", 0, "RND policy seed; 0 picks one from the clock")
	logLevel   = flag.String("log_level", "warn", "Log level (debug, info, warn, error)")
)

var errExit = errors.New("exit")

// session is the state of one interactive run.
type session struct {
	engine *mmu.MMU
	seed   uint64
	src    *rand.PCG // nil when the RND source is clock seeded
}

func newSession(cfg mmu.Config, seed uint64, zlogger *zap.Logger) (*session, error) {
	policyType, err := replacer.ParsePolicyType(string(cfg.Policy))
	if err != nil {
		return nil, err
	}
	// Commands arrive one at a time, so there is no future to look at.
	if policyType == replacer.Optimal {
		return nil, fmt.Errorf("the %s policy needs the whole instruction stream; use pagesim -file instead", policyType)
	}
	cfg.Policy = policyType

	s := &session{seed: seed}
	opts := []mmu.Option{mmu.WithLogger(zlogger)}
	if seed != 0 {
		s.src = rand.NewPCG(seed, seed)
		opts = append(opts, mmu.WithRand(rand.New(s.src)))
	}
	s.engine, err = mmu.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// reset wipes the engine and rewinds a seeded RND source so a replay matches.
func (s *session) reset() {
	if s.src != nil {
		s.src.Seed(s.seed, s.seed)
	}
	s.engine.Reset()
}

func (s *session) apply(op instructions.Op, out io.Writer) error {
	ptr, err := s.engine.Apply(op)
	if err != nil {
		return err
	}
	if op.Type == instructions.OpNew {
		fmt.Fprintf(out, "ptr %d\n", ptr)
	}
	return nil
}

// processCommand handles a single line of input. It returns errExit when the
// user asks to leave.
func processCommand(s *session, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "stats":
		return report.WriteStats(out, []mmu.Stats{s.engine.Stats()})
	case "frames":
		return report.WriteFrames(out, s.engine.Snapshot())
	case "virtual":
		return report.WriteVirtual(out, s.engine.Snapshot())
	case "ptr":
		if len(fields) != 2 {
			return errors.New("usage: ptr <id>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 63)
		if err != nil {
			return fmt.Errorf("invalid pointer %q", fields[1])
		}
		pages, ok := s.engine.Pages(pagemanager.PointerID(id))
		if !ok {
			return fmt.Errorf("pointer %d does not exist", id)
		}
		return report.WritePages(out, pages)
	case "load":
		if len(fields) != 2 {
			return errors.New("usage: load <file>")
		}
		return s.loadFile(fields[1], out)
	case "reset":
		s.reset()
		fmt.Fprintln(out, "memory reset")
		return nil
	case "help":
		printHelp(out)
		return nil
	case "exit", "quit":
		return errExit
	}

	op, err := instructions.ParseLine(line)
	if err != nil {
		return fmt.Errorf("%w (type 'help' for commands)", err)
	}
	return s.apply(op, out)
}

func (s *session) loadFile(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ops, err := instructions.Parse(f)
	if err != nil {
		return err
	}
	rejected := 0
	for _, op := range ops {
		if err := s.apply(op, io.Discard); err != nil {
			rejected++
			fmt.Fprintf(out, "%s: %v\n", op, err)
		}
	}
	fmt.Fprintf(out, "applied %d operations, %d rejected\n", len(ops)-rejected, rejected)
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Instructions:")
	fmt.Fprintln(out, "  new(<pid>,<size>)   Allocate size bytes for a process; prints the pointer")
	fmt.Fprintln(out, "  use(<ptr>)          Access every page of a pointer")
	fmt.Fprintln(out, "  delete(<ptr>)       Release a pointer")
	fmt.Fprintln(out, "  kill(<pid>)         Release every pointer of a process")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  stats               Show the accounting summary")
	fmt.Fprintln(out, "  frames              Show the occupied RAM frames")
	fmt.Fprintln(out, "  virtual             Show the pages in the virtual store")
	fmt.Fprintln(out, "  ptr <id>            Show the pages of a pointer")
	fmt.Fprintln(out, "  load <file>         Apply every instruction of a file")
	fmt.Fprintln(out, "  reset               Start over with empty memory")
	fmt.Fprintln(out, "  help, exit, quit")
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	cfg := logger.DefaultConfig()
	cfg.Level = *logLevel
	zlogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Can't initialize zap logger: %v", err)
	}
	defer zlogger.Sync()

	s, err := newSession(mmu.Config{PageSize: *pageSize, TotalFrames: *frames, Policy: replacer.PolicyType(*policy)}, *randomSeed, zlogger)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagesim> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("Error initializing readline: %v", err)
	}
	defer rl.Close()

	fmt.Printf("PageSim CLI (%s, %d frames of %d bytes). Type 'help' for commands, 'exit' or 'quit' to leave.\n",
		s.engine.Policy(), s.engine.Config().TotalFrames, s.engine.Config().PageSize)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		if err := processCommand(s, strings.TrimSpace(line), rl.Stdout()); err != nil {
			if errors.Is(err, errExit) {
				break
			}
			fmt.Fprintf(rl.Stderr(), "Error: %v\n", err)
		}
	}
	fmt.Println("Exiting PageSim CLI.")
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.pagesim_history"
}
