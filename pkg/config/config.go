// Package config loads the YAML configuration shared by the PageSim binaries.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/memerr"
	"github.com/sushant-115/pagesim/core/memory/mmu"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	"github.com/sushant-115/pagesim/pkg/logger"
	"github.com/sushant-115/pagesim/pkg/telemetry"
)

// SimulationConfig selects the instruction source and how a run is driven.
type SimulationConfig struct {
	// InstructionsFile is parsed when set; otherwise the generator is used.
	InstructionsFile string                       `yaml:"instructions_file"`
	Generator        instructions.GeneratorConfig `yaml:"generator"`
	// Cadence is the pause between steps. Zero runs as fast as possible.
	Cadence time.Duration `yaml:"cadence"`
	// CompareOptimal runs an OPT engine next to the selected policy.
	CompareOptimal bool `yaml:"compare_optimal"`
	// RandomSeed seeds the RND policy. Zero picks a time-based seed.
	RandomSeed uint64 `yaml:"random_seed"`
}

// Config is the root of the configuration file.
type Config struct {
	Logger     logger.Config    `yaml:"logger"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
	Memory     mmu.Config       `yaml:"memory"`
	Simulation SimulationConfig `yaml:"simulation"`
	// HTTPAddr serves snapshots for a presentation layer when set.
	HTTPAddr string `yaml:"http_addr"`
}

// Default mirrors the classroom setup: 100 frames of 4000 bytes, FIFO
// compared against OPT, one step every 50ms.
func Default() Config {
	return Config{
		Logger:    logger.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Memory:    mmu.DefaultConfig(),
		Simulation: SimulationConfig{
			Generator: instructions.GeneratorConfig{
				Processes:  10,
				Operations: 500,
				Seed:       1,
			},
			Cadence:        50 * time.Millisecond,
			CompareOptimal: true,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if policy, err := replacer.ParsePolicyType(string(cfg.Memory.Policy)); err == nil {
		cfg.Memory.Policy = policy
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every section the binaries depend on.
func (c Config) Validate() error {
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if c.Simulation.Cadence < 0 {
		return fmt.Errorf("%w: cadence must not be negative", memerr.ErrInvalidConfig)
	}
	if c.Simulation.InstructionsFile == "" {
		if err := c.Simulation.Generator.Validate(); err != nil {
			return err
		}
	}
	return nil
}
