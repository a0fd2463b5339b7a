package instructions

import (
	"testing"

	"github.com/stretchr/testify/require"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

const sampleProgram = `
new(1,250)
new(2, 5000)
use(1)

  use(2)
delete(1)
kill(2)
`

func TestParse_Sample(t *testing.T) {
	ops, err := ParseString(sampleProgram)
	require.NoError(t, err)
	require.Equal(t, []Op{
		New(1, 250),
		New(2, 5000),
		Use(1),
		Use(2),
		Delete(1),
		Kill(2),
	}, ops)

	// Format writes the canonical form, which parses back to the same ops.
	again, err := ParseString(Format(ops))
	require.NoError(t, err)
	require.Equal(t, ops, again)
	require.Equal(t, "new(2,5000)", ops[1].String())
}

func TestParse_Rejects(t *testing.T) {
	bad := []string{
		"new(1)",
		"new(-1,10)",
		"use()",
		"use(a)",
		"USE(1)",
		"free(1)",
		"kill(1,2)",
		"use(99999999999999999999)",
	}
	for _, line := range bad {
		_, err := ParseLine(line)
		require.ErrorIs(t, err, ErrMalformedInstruction, line)
	}
}

func TestParse_FailsWholeInput(t *testing.T) {
	ops, err := ParseString("new(1,10)\nuse(1)\nbogus\nuse(1)\n")
	require.ErrorIs(t, err, ErrMalformedInstruction)
	require.Contains(t, err.Error(), "line 3")
	require.Nil(t, ops)
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Processes: 4, Operations: 200, Seed: 99}
	first, err := Generate(cfg)
	require.NoError(t, err)
	second, err := Generate(cfg)
	require.NoError(t, err)
	require.Equal(t, first, second)

	cfg.Seed = 100
	other, err := Generate(cfg)
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestGenerate_ProducesValidStreams(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		cfg := GeneratorConfig{Processes: 6, Operations: 150, Seed: seed}
		ops, err := Generate(cfg)
		require.NoError(t, err)
		require.LessOrEqual(t, len(ops), cfg.Operations)

		// Replay the pointer numbering of the memory manager.
		nextPtr := pagemanager.PointerID(1)
		owner := make(map[pagemanager.PointerID]pagemanager.ProcessID)
		killed := make(map[pagemanager.ProcessID]bool)
		created := make(map[pagemanager.ProcessID]bool)
		for i, op := range ops {
			switch op.Type {
			case OpNew:
				require.False(t, killed[op.PID], "seed %d op %d: new after kill", seed, i)
				require.Positive(t, op.Size)
				require.LessOrEqual(t, op.Size, maxAllocationSize)
				owner[nextPtr] = op.PID
				created[op.PID] = true
				nextPtr++
			case OpUse:
				_, ok := owner[op.Ptr]
				require.True(t, ok, "seed %d op %d: use of dead pointer %d", seed, i, op.Ptr)
			case OpDelete:
				_, ok := owner[op.Ptr]
				require.True(t, ok, "seed %d op %d: delete of dead pointer %d", seed, i, op.Ptr)
				delete(owner, op.Ptr)
			case OpKill:
				require.False(t, killed[op.PID], "seed %d op %d: process killed twice", seed, i)
				killed[op.PID] = true
				for ptr, pid := range owner {
					if pid == op.PID {
						delete(owner, ptr)
					}
				}
			}
		}
		for pid := range created {
			require.True(t, killed[pid], "seed %d: process %d never killed", seed, pid)
		}
	}
}

func TestGeneratorConfig_Validate(t *testing.T) {
	require.NoError(t, GeneratorConfig{Processes: 2, Operations: 4}.Validate())
	require.ErrorIs(t, GeneratorConfig{Processes: 0, Operations: 4}.Validate(), ErrInvalidGeneratorConfig)
	require.ErrorIs(t, GeneratorConfig{Processes: 3, Operations: 5}.Validate(), ErrInvalidGeneratorConfig)

	_, err := Generate(GeneratorConfig{Processes: 1, Operations: 0})
	require.ErrorIs(t, err, ErrInvalidGeneratorConfig)
}

func TestStream_NextUse(t *testing.T) {
	ops, err := ParseString("new(1,1)\nuse(1)\nnew(1,1)\nuse(2)\nuse(1)\n")
	require.NoError(t, err)
	s := NewStream(ops)
	require.Equal(t, 5, s.Len())

	next, ok := s.NextUse(1)
	require.True(t, ok)
	require.Equal(t, 1, next)

	// The op under the cursor counts as upcoming.
	s.Seek(1)
	next, ok = s.NextUse(1)
	require.True(t, ok)
	require.Equal(t, 1, next)

	s.Seek(2)
	next, ok = s.NextUse(1)
	require.True(t, ok)
	require.Equal(t, 4, next)

	s.Seek(5)
	_, ok = s.NextUse(1)
	require.False(t, ok)

	_, ok = s.NextUse(42)
	require.False(t, ok)

	s.Seek(-3)
	require.Equal(t, 0, s.Position())
	require.Equal(t, Use(2), s.At(3))
}
