package instructions

import (
	"sort"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

// Stream is a read-only, indexable view over an op sequence with a cursor
// marking the op currently being applied. It is the lookahead handed to the
// optimal policy; the driver must keep the cursor in step with the ops it
// actually applies.
type Stream struct {
	ops  []Op
	pos  int
	uses map[pagemanager.PointerID][]int // ptr to ascending indexes of its use() ops
}

func NewStream(ops []Op) *Stream {
	s := &Stream{
		ops:  append([]Op(nil), ops...),
		uses: make(map[pagemanager.PointerID][]int),
	}
	for i, op := range s.ops {
		if op.Type == OpUse {
			s.uses[op.Ptr] = append(s.uses[op.Ptr], i)
		}
	}
	return s
}

func (s *Stream) Len() int      { return len(s.ops) }
func (s *Stream) At(i int) Op   { return s.ops[i] }
func (s *Stream) Position() int { return s.pos }

// Seek moves the cursor to op i. Positions past the end mean nothing remains.
func (s *Stream) Seek(i int) {
	if i < 0 {
		i = 0
	}
	s.pos = i
}

// NextUse returns the index of the first use(ptr) at or after the cursor.
func (s *Stream) NextUse(ptr pagemanager.PointerID) (int, bool) {
	idx := s.uses[ptr]
	k := sort.SearchInts(idx, s.pos)
	if k == len(idx) {
		return 0, false
	}
	return idx[k], true
}
