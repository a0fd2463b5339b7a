package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/memerr"
	"github.com/sushant-115/pagesim/core/memory/mmu"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
)

func setupRunner(t *testing.T, policy replacer.PolicyType, opts Options) *Runner {
	t.Helper()
	r, err := NewRunner(mmu.Config{PageSize: 1000, TotalFrames: 4, Policy: policy}, opts, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return r
}

func generated(t *testing.T, seed uint64) []instructions.Op {
	t.Helper()
	ops, err := instructions.Generate(instructions.GeneratorConfig{Processes: 4, Operations: 120, Seed: seed})
	require.NoError(t, err)
	return ops
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	_, err := NewRunner(mmu.Config{PageSize: 1000, TotalFrames: 0, Policy: replacer.FIFO}, Options{}, nil, nil)
	require.ErrorIs(t, err, memerr.ErrInvalidConfig)

	_, err = NewRunner(mmu.Config{PageSize: 1000, TotalFrames: 2, Policy: replacer.FIFO}, Options{Cadence: -time.Second}, nil, nil)
	require.Error(t, err)
}

func TestRunner_Policies(t *testing.T) {
	require.Equal(t, []replacer.PolicyType{replacer.SecondChance, replacer.Optimal},
		setupRunner(t, replacer.SecondChance, Options{CompareOptimal: true}).Policies())
	require.Equal(t, []replacer.PolicyType{replacer.Optimal},
		setupRunner(t, replacer.Optimal, Options{CompareOptimal: true}).Policies())
	require.Equal(t, []replacer.PolicyType{replacer.MRU},
		setupRunner(t, replacer.MRU, Options{}).Policies())
}

func TestRun_ComparesAgainstOptimal(t *testing.T) {
	r := setupRunner(t, replacer.FIFO, Options{CompareOptimal: true})
	ops := generated(t, 3)

	var steps []Step
	result, err := r.Run(context.Background(), ops, func(step Step) { steps = append(steps, step) })
	require.NoError(t, err)

	require.Equal(t, len(ops), result.Steps)
	require.NotEmpty(t, result.RunID)
	require.Len(t, steps, len(ops))
	for i, step := range steps {
		require.Equal(t, i, step.Index)
		require.Equal(t, len(ops), step.Total)
		require.Equal(t, ops[i], step.Op)
		require.Equal(t, result.RunID, step.RunID)
		require.Len(t, step.Results, 2)
		require.Equal(t, replacer.FIFO, step.Results[0].Policy)
		require.Equal(t, replacer.Optimal, step.Results[1].Policy)
		for _, res := range step.Results {
			require.NoError(t, res.Err)
			require.LessOrEqual(t, res.Snapshot.Stats.ResidentPages, 4)
		}
	}

	require.Len(t, result.Final, 2)
	for _, snap := range result.Final {
		require.Zero(t, snap.Stats.RunningProcesses)
		// Both engines saw the same allocations.
		require.Equal(t, result.Final[0].Stats.FragmentationBytes, snap.Stats.FragmentationBytes)
	}
}

func TestRun_InvalidUseIsReportedAndRunContinues(t *testing.T) {
	r := setupRunner(t, replacer.FIFO, Options{CompareOptimal: true})
	ops, err := instructions.ParseString("new(1,10)\nuse(42)\nuse(1)\n")
	require.NoError(t, err)

	var steps []Step
	result, err := r.Run(context.Background(), ops, func(step Step) { steps = append(steps, step) })
	require.NoError(t, err)
	require.Equal(t, 3, result.Steps)

	for _, res := range steps[1].Results {
		require.ErrorIs(t, res.Err, memerr.ErrInvalidPointer)
		require.NotEmpty(t, res.Error)
	}
	for _, res := range steps[2].Results {
		require.NoError(t, res.Err)
		require.Empty(t, res.Error)
	}
	require.Equal(t, pagemanager.PointerID(1), steps[0].Results[0].Ptr)
}

func TestRun_CancelledContext(t *testing.T) {
	r := setupRunner(t, replacer.FIFO, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx, generated(t, 1), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	require.Zero(t, result.Steps)
	require.Len(t, result.Final, 1)
}

func TestRun_CadenceStopsAtDeadline(t *testing.T) {
	r := setupRunner(t, replacer.FIFO, Options{Cadence: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := r.Run(ctx, generated(t, 1), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	// The first step is let through immediately.
	require.Equal(t, 1, result.Steps)
}

func TestRun_SeededRandomIsReproducible(t *testing.T) {
	ops := generated(t, 8)
	run := func() []mmu.Snapshot {
		r := setupRunner(t, replacer.Random, Options{RandomSeed: 1234})
		result, err := r.Run(context.Background(), ops, nil)
		require.NoError(t, err)
		return result.Final
	}
	require.Equal(t, run(), run())
}
