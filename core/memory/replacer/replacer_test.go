package replacer

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sushant-115/pagesim/core/memory/memerr"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

// --- Test Helpers ---

type testView struct {
	frames []*pagemanager.Page
	queue  *EvictionQueue
}

func (v *testView) Frames() []*pagemanager.Page { return v.frames }
func (v *testView) Queue() *EvictionQueue       { return v.queue }

// newFullView places one page per frame, loaded in frame order.
func newFullView(t *testing.T, frames int) *testView {
	t.Helper()
	v := &testView{frames: make([]*pagemanager.Page, frames), queue: NewEvictionQueue()}
	for i := 0; i < frames; i++ {
		page := pagemanager.NewPage(pagemanager.PageID(i), 1, pagemanager.PointerID(i+1))
		page.MapToFrame(i)
		page.SetReferenceBit(1)
		page.SetLastUsed(uint64(i + 1))
		v.frames[i] = page
		v.queue.Push(page)
	}
	return v
}

type mapLookahead map[pagemanager.PointerID]int

func (l mapLookahead) NextUse(ptr pagemanager.PointerID) (int, bool) {
	idx, ok := l[ptr]
	return idx, ok
}

// --- Test Cases ---

func TestParsePolicyType(t *testing.T) {
	for _, in := range []string{"fifo", "FIFO", " opt ", "Mru", "rnd", "sc"} {
		_, err := ParsePolicyType(in)
		require.NoError(t, err, in)
	}
	p, err := ParsePolicyType("sc")
	require.NoError(t, err)
	require.Equal(t, SecondChance, p)

	_, err = ParsePolicyType("LRU")
	require.ErrorIs(t, err, memerr.ErrUnknownPolicy)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Optimal)
	require.ErrorIs(t, err, memerr.ErrLookaheadRequired)

	_, err = New(PolicyType("CLOCK"))
	require.ErrorIs(t, err, memerr.ErrUnknownPolicy)

	for _, p := range AllPolicies {
		policy, err := New(p, WithLookahead(mapLookahead{}))
		require.NoError(t, err)
		require.Equal(t, p, policy.Type())
	}
}

func TestFIFO_EvictsOldest(t *testing.T) {
	v := newFullView(t, 3)
	policy, err := New(FIFO)
	require.NoError(t, err)

	victim, err := policy.Victim(v)
	require.NoError(t, err)
	require.Equal(t, pagemanager.PageID(0), victim.GetPageID())

	_, err = policy.Victim(&testView{queue: NewEvictionQueue()})
	require.ErrorIs(t, err, memerr.ErrEvictionQueueEmpty)
}

func TestOptimal_PrefersPageNeverUsedAgain(t *testing.T) {
	v := newFullView(t, 3)
	// ptr 1 is used next at 4, ptr 3 at 9, ptr 2 never again.
	policy, err := New(Optimal, WithLookahead(mapLookahead{1: 4, 3: 9}))
	require.NoError(t, err)

	victim, err := policy.Victim(v)
	require.NoError(t, err)
	require.Equal(t, pagemanager.PointerID(2), victim.GetPointer())
}

func TestOptimal_FarthestNextUse(t *testing.T) {
	v := newFullView(t, 3)
	policy, err := New(Optimal, WithLookahead(mapLookahead{1: 4, 2: 12, 3: 9}))
	require.NoError(t, err)

	victim, err := policy.Victim(v)
	require.NoError(t, err)
	require.Equal(t, pagemanager.PointerID(2), victim.GetPointer())
}

func TestMRU_FirstFrameWinsTies(t *testing.T) {
	v := newFullView(t, 3)
	v.frames[0].SetLastUsed(3)
	v.frames[1].SetLastUsed(7)
	v.frames[2].SetLastUsed(7)
	policy, err := New(MRU)
	require.NoError(t, err)

	victim, err := policy.Victim(v)
	require.NoError(t, err)
	require.Equal(t, 1, victim.GetFrame())
}

func TestRandom_IsReproducibleWithSeed(t *testing.T) {
	pick := func() []pagemanager.PageID {
		v := newFullView(t, 8)
		policy, err := New(Random, WithRand(rand.New(rand.NewPCG(42, 42))))
		require.NoError(t, err)
		var picked []pagemanager.PageID
		for i := 0; i < 20; i++ {
			victim, err := policy.Victim(v)
			require.NoError(t, err)
			require.True(t, victim.IsResident())
			picked = append(picked, victim.GetPageID())
		}
		return picked
	}
	require.Equal(t, pick(), pick())

	policy, err := New(Random, WithRand(rand.New(rand.NewPCG(1, 1))))
	require.NoError(t, err)
	_, err = policy.Victim(&testView{frames: make([]*pagemanager.Page, 2), queue: NewEvictionQueue()})
	require.ErrorIs(t, err, memerr.ErrNoEvictablePage)
}

func TestSecondChance_ClearsBitsAndRotates(t *testing.T) {
	v := newFullView(t, 3)
	v.frames[1].SetReferenceBit(0)
	v.frames[2].SetReferenceBit(0)
	policy, err := New(SecondChance)
	require.NoError(t, err)

	// Page 0 has its bit set, so it gets a second chance and page 1 goes.
	victim, err := policy.Victim(v)
	require.NoError(t, err)
	require.Equal(t, pagemanager.PageID(1), victim.GetPageID())
	require.Equal(t, uint8(0), v.frames[0].GetReferenceBit())

	order := v.queue.Pages()
	require.Equal(t, pagemanager.PageID(1), order[0].GetPageID())
	require.Equal(t, pagemanager.PageID(0), order[len(order)-1].GetPageID())
}

func TestSecondChance_AllBitsSet(t *testing.T) {
	v := newFullView(t, 3)
	policy, err := New(SecondChance)
	require.NoError(t, err)

	// A full pass clears every bit and the page at the head is chosen.
	victim, err := policy.Victim(v)
	require.NoError(t, err)
	require.Equal(t, pagemanager.PageID(0), victim.GetPageID())
	for _, page := range v.frames {
		require.Equal(t, uint8(0), page.GetReferenceBit())
	}
}

func TestEvictionQueue(t *testing.T) {
	q := NewEvictionQueue()
	p0 := pagemanager.NewPage(0, 1, 1)
	p1 := pagemanager.NewPage(1, 1, 1)
	p2 := pagemanager.NewPage(2, 1, 1)

	require.Nil(t, q.Front())
	q.Push(p0)
	q.Push(p1)
	q.Push(p2)
	require.Equal(t, 3, q.Len())
	require.Same(t, p0, q.Front())

	// Pushing a queued page moves it to the tail without duplicating it.
	q.Push(p0)
	require.Equal(t, 3, q.Len())
	require.Same(t, p1, q.Front())

	require.True(t, q.Remove(p1))
	require.False(t, q.Remove(p1))
	require.NotContains(t, q.Pages(), p1)
	require.Equal(t, []*pagemanager.Page{p2, p0}, q.Pages())

	q.MoveToBack(p2)
	require.Equal(t, []*pagemanager.Page{p0, p2}, q.Pages())

	q.Clear()
	require.Zero(t, q.Len())
	require.Empty(t, q.Pages())
	require.False(t, q.Remove(p0))
}
