package instructions

import (
	"errors"
	"fmt"
	"math/rand/v2"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

var ErrInvalidGeneratorConfig = errors.New("invalid generator configuration")

const (
	maxAllocationSize = 10000 // bytes, inclusive upper bound of a generated new()
	killProbability   = 0.005
)

// GeneratorConfig parameterizes Generate.
type GeneratorConfig struct {
	Processes  int    `yaml:"processes"`
	Operations int    `yaml:"operations"`
	Seed       uint64 `yaml:"seed"`
}

func (c GeneratorConfig) Validate() error {
	if c.Processes <= 0 || c.Operations <= 0 {
		return fmt.Errorf("%w: processes and operations must be positive", ErrInvalidGeneratorConfig)
	}
	if c.Operations < 2*c.Processes {
		return fmt.Errorf("%w: %d operations cannot serve %d processes (need at least %d)",
			ErrInvalidGeneratorConfig, c.Operations, c.Processes, 2*c.Processes)
	}
	return nil
}

type genProcess struct {
	pid        pagemanager.ProcessID
	pointers   []pagemanager.PointerID
	created    bool
	terminated bool
}

// Generate produces a pseudo-random instruction sequence that is fully
// determined by the config. Pointer ids are predicted the way the memory
// manager assigns them (sequentially from 1), so every use and delete refers
// to a live pointer of its own process. Every process that allocated is
// killed at the end.
func Generate(cfg GeneratorConfig) ([]Op, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	procs := make([]*genProcess, cfg.Processes)
	for i := range procs {
		procs[i] = &genProcess{pid: pagemanager.ProcessID(i + 1)}
	}

	ops := make([]Op, 0, cfg.Operations)
	nextPtr := pagemanager.PointerID(1)
	pendingKills := cfg.Processes
	emitted := 0

	for emitted+pendingKills < cfg.Operations {
		active := activeProcesses(procs)
		if len(active) == 0 {
			break
		}
		proc := active[rng.IntN(len(active))]

		if proc.created && rng.Float64() < killProbability {
			ops = append(ops, Kill(proc.pid))
			proc.terminated = true
			pendingKills--
			emitted++
			continue
		}

		switch rng.IntN(3) {
		case 0:
			size := rng.IntN(maxAllocationSize) + 1
			ops = append(ops, New(proc.pid, size))
			proc.pointers = append(proc.pointers, nextPtr)
			nextPtr++
			proc.created = true
		case 1:
			if len(proc.pointers) == 0 {
				continue
			}
			ops = append(ops, Use(proc.pointers[rng.IntN(len(proc.pointers))]))
		case 2:
			if len(proc.pointers) == 0 {
				continue
			}
			i := rng.IntN(len(proc.pointers))
			ops = append(ops, Delete(proc.pointers[i]))
			proc.pointers = append(proc.pointers[:i], proc.pointers[i+1:]...)
		}
		emitted++
	}

	for _, proc := range procs {
		if proc.created && !proc.terminated {
			ops = append(ops, Kill(proc.pid))
			proc.terminated = true
		}
	}
	return ops, nil
}

func activeProcesses(procs []*genProcess) []*genProcess {
	active := make([]*genProcess, 0, len(procs))
	for _, p := range procs {
		if !p.terminated {
			active = append(active, p)
		}
	}
	return active
}
