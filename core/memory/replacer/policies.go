package replacer

import (
	"math/rand/v2"

	"github.com/sushant-115/pagesim/core/memory/memerr"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

// fifoPolicy evicts the page that has been resident the longest.
type fifoPolicy struct{}

func (p *fifoPolicy) Type() PolicyType { return FIFO }

func (p *fifoPolicy) Victim(view View) (*pagemanager.Page, error) {
	victim := view.Queue().Front()
	if victim == nil {
		return nil, memerr.ErrEvictionQueueEmpty
	}
	return victim, nil
}

// optimalPolicy evicts the resident page whose next use lies farthest ahead.
type optimalPolicy struct {
	lookahead Lookahead
}

func (p *optimalPolicy) Type() PolicyType { return Optimal }

func (p *optimalPolicy) Victim(view View) (*pagemanager.Page, error) {
	var victim *pagemanager.Page
	farthest := -1
	for _, page := range residentPages(view) {
		next, ok := p.lookahead.NextUse(page.GetPointer())
		if !ok {
			// Never referenced again.
			return page, nil
		}
		if next > farthest {
			farthest = next
			victim = page
		}
	}
	if victim == nil {
		return nil, memerr.ErrNoEvictablePage
	}
	return victim, nil
}

// mruPolicy evicts the most recently used page. It is deliberately a poor
// policy, kept as a point of comparison.
type mruPolicy struct{}

func (p *mruPolicy) Type() PolicyType { return MRU }

func (p *mruPolicy) Victim(view View) (*pagemanager.Page, error) {
	var victim *pagemanager.Page
	for _, page := range residentPages(view) {
		// Strict comparison: the first page in frame order wins ties.
		if victim == nil || page.GetLastUsed() > victim.GetLastUsed() {
			victim = page
		}
	}
	if victim == nil {
		return nil, memerr.ErrNoEvictablePage
	}
	return victim, nil
}

// randomPolicy evicts a uniformly chosen resident page.
type randomPolicy struct {
	rng *rand.Rand
}

func (p *randomPolicy) Type() PolicyType { return Random }

func (p *randomPolicy) Victim(view View) (*pagemanager.Page, error) {
	pages := residentPages(view)
	if len(pages) == 0 {
		return nil, memerr.ErrNoEvictablePage
	}
	return pages[p.rng.IntN(len(pages))], nil
}

// secondChancePolicy scans the eviction queue circularly. A page with its
// reference bit set has the bit cleared and goes to the tail instead of
// being evicted.
type secondChancePolicy struct{}

func (p *secondChancePolicy) Type() PolicyType { return SecondChance }

func (p *secondChancePolicy) Victim(view View) (*pagemanager.Page, error) {
	queue := view.Queue()
	if queue.Len() == 0 {
		return nil, memerr.ErrEvictionQueueEmpty
	}
	// Terminates within two passes: the first clears every bit it meets.
	for {
		candidate := queue.Front()
		if candidate.GetReferenceBit() == 0 {
			return candidate, nil
		}
		candidate.SetReferenceBit(0)
		queue.MoveToBack(candidate)
	}
}
