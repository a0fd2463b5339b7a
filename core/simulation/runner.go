// Package simulation drives one or more memory managers over the same
// instruction stream, one step at a time, at a fixed cadence.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/mmu"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	internaltelemetry "github.com/sushant-115/pagesim/internal/telemetry"
	"github.com/sushant-115/pagesim/pkg/telemetry"
)

// Options controls how a run is driven.
type Options struct {
	// Cadence is the minimum wall time between two steps. Zero disables throttling.
	Cadence time.Duration
	// CompareOptimal adds an OPT engine next to the configured policy.
	CompareOptimal bool
	// RandomSeed seeds the RND policy; zero leaves it time-seeded.
	RandomSeed uint64
}

// EngineResult is the outcome of one step on one engine.
type EngineResult struct {
	Policy replacer.PolicyType   `json:"policy"`
	Ptr    pagemanager.PointerID `json:"ptr,omitempty"`
	// Err is set when the engine rejected the op, e.g. use() of an unknown pointer.
	Err      error        `json:"-"`
	Error    string       `json:"error,omitempty"`
	Snapshot mmu.Snapshot `json:"snapshot"`
}

// Step is published to the observer after every applied op.
type Step struct {
	RunID   string          `json:"run_id"`
	Index   int             `json:"index"`
	Total   int             `json:"total"`
	Op      instructions.Op `json:"op"`
	Results []EngineResult  `json:"results"`
}

// Observer receives every step. It runs on the runner's goroutine.
type Observer func(Step)

// Result summarizes a finished run.
type Result struct {
	RunID string
	Steps int
	Final []mmu.Snapshot
}

type engine struct {
	mmu     *mmu.MMU
	metrics *internaltelemetry.PagingMetrics
}

// Runner builds fresh engines for every Run.
type Runner struct {
	cfg     mmu.Config
	opts    Options
	logger  *zap.Logger
	tel     *telemetry.Telemetry
	metrics *internaltelemetry.PagingMetrics
}

// NewRunner validates the memory configuration and registers the paging
// instruments on the telemetry meter. nil logger and telemetry are allowed.
func NewRunner(cfg mmu.Config, opts Options, logger *zap.Logger, tel *telemetry.Telemetry) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Cadence < 0 {
		return nil, fmt.Errorf("cadence must not be negative, got %s", opts.Cadence)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tel == nil {
		tel = telemetry.Noop()
	}
	metrics, err := internaltelemetry.NewPagingMetrics(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to register paging metrics: %w", err)
	}
	return &Runner{cfg: cfg, opts: opts, logger: logger, tel: tel, metrics: metrics}, nil
}

// Policies returns the policies a run compares, the configured one first.
func (r *Runner) Policies() []replacer.PolicyType {
	primary, _ := replacer.ParsePolicyType(string(r.cfg.Policy))
	policies := []replacer.PolicyType{primary}
	if r.opts.CompareOptimal && primary != replacer.Optimal {
		policies = append(policies, replacer.Optimal)
	}
	return policies
}

// Run applies ops in order to every engine. Between steps it waits for the
// cadence and honours ctx cancellation; a cancelled run returns the partial
// result together with the context error. An op rejected by an engine is
// reported in the step and does not stop the run.
func (r *Runner) Run(ctx context.Context, ops []instructions.Op, observe Observer) (*Result, error) {
	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID))
	stream := instructions.NewStream(ops)

	engines, err := r.newEngines(stream, logger)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if r.opts.Cadence > 0 {
		limiter = rate.NewLimiter(rate.Every(r.opts.Cadence), 1)
	}

	logger.Info("simulation started",
		zap.Int("operations", len(ops)),
		zap.Stringers("policies", r.Policies()),
		zap.Duration("cadence", r.opts.Cadence))

	result := &Result{RunID: runID}
	for i, op := range ops {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return r.finish(result, engines), fmt.Errorf("simulation %s stopped at step %d: %w", runID, i, contextErr(ctx, err))
			}
		} else if err := ctx.Err(); err != nil {
			return r.finish(result, engines), fmt.Errorf("simulation %s stopped at step %d: %w", runID, i, err)
		}

		// The lookahead must point at the op being applied.
		stream.Seek(i)
		step := r.step(ctx, runID, i, len(ops), op, engines, logger)
		result.Steps++
		if observe != nil {
			observe(step)
		}
	}

	logger.Info("simulation finished", zap.Int("steps", result.Steps))
	return r.finish(result, engines), nil
}

func (r *Runner) step(ctx context.Context, runID string, i, total int, op instructions.Op, engines []engine, logger *zap.Logger) Step {
	ctx, span := r.tel.Tracer.Start(ctx, "simulation.step", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("step", i),
		attribute.String("op", op.String()),
	))
	defer span.End()

	step := Step{RunID: runID, Index: i, Total: total, Op: op, Results: make([]EngineResult, 0, len(engines))}
	for _, e := range engines {
		start := time.Now()
		ptr, err := e.mmu.Apply(op)
		e.metrics.RecordOperation(ctx, string(op.Type), time.Since(start))

		res := EngineResult{Policy: e.mmu.Policy(), Ptr: ptr, Snapshot: e.mmu.Snapshot()}
		if err != nil {
			res.Err = err
			res.Error = err.Error()
			span.RecordError(err, trace.WithAttributes(attribute.String("policy", res.Policy.String())))
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("instruction rejected",
				zap.Int("step", i),
				zap.Stringer("op", op),
				zap.String("policy", res.Policy.String()),
				zap.Error(err))
		}
		step.Results = append(step.Results, res)
	}
	return step
}

func (r *Runner) newEngines(stream *instructions.Stream, logger *zap.Logger) ([]engine, error) {
	var engines []engine
	for _, policy := range r.Policies() {
		cfg := r.cfg
		cfg.Policy = policy
		opts := []mmu.Option{
			mmu.WithLogger(logger),
			mmu.WithMetrics(r.metrics),
			mmu.WithLookahead(stream),
		}
		if r.opts.RandomSeed != 0 {
			opts = append(opts, mmu.WithRand(rand.New(rand.NewPCG(r.opts.RandomSeed, r.opts.RandomSeed))))
		}
		m, err := mmu.New(cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s engine: %w", policy, err)
		}
		engines = append(engines, engine{mmu: m, metrics: r.metrics.ForPolicy(policy.String())})
	}
	return engines, nil
}

func (r *Runner) finish(result *Result, engines []engine) *Result {
	result.Final = make([]mmu.Snapshot, len(engines))
	for i, e := range engines {
		result.Final[i] = e.mmu.Snapshot()
	}
	return result
}

// contextErr prefers the context's own error over the limiter's wrapping of it.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// rate.Limiter refuses to wait past the context deadline before it expires.
	if _, ok := ctx.Deadline(); ok {
		return context.DeadlineExceeded
	}
	return err
}
