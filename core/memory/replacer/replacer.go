// Package replacer implements the page eviction policies of the simulated
// memory manager. A policy only chooses a victim; moving the victim out of
// RAM and charging the logical clock is the frame table's job.
package replacer

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sushant-115/pagesim/core/memory/memerr"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

// View is the part of the frame table a policy may inspect.
type View interface {
	// Frames returns the frame slots; empty slots are nil. Callers must not modify it.
	Frames() []*pagemanager.Page
	// Queue returns the eviction order of resident pages.
	Queue() *EvictionQueue
}

// Lookahead is a read-only view over the operations not applied yet.
type Lookahead interface {
	// NextUse returns the stream index of the next access to ptr at or after
	// the current position. ok is false if ptr is never used again.
	NextUse(ptr pagemanager.PointerID) (index int, ok bool)
}

// Policy selects the page to evict when every frame is occupied.
type Policy interface {
	Type() PolicyType
	// Victim returns a page that is currently resident.
	Victim(view View) (*pagemanager.Page, error)
}

type options struct {
	lookahead Lookahead
	rng       *rand.Rand
}

// Option configures a policy built by New.
type Option func(*options)

// WithLookahead supplies the forward view required by the optimal policy.
func WithLookahead(l Lookahead) Option {
	return func(o *options) { o.lookahead = l }
}

// WithRand supplies the random source used by the random policy.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// New builds the policy for the given tag.
func New(policyType PolicyType, opts ...Option) (Policy, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	switch policyType {
	case FIFO:
		return &fifoPolicy{}, nil
	case Optimal:
		if o.lookahead == nil {
			return nil, memerr.ErrLookaheadRequired
		}
		return &optimalPolicy{lookahead: o.lookahead}, nil
	case MRU:
		return &mruPolicy{}, nil
	case Random:
		rng := o.rng
		if rng == nil {
			seed := uint64(time.Now().UnixNano())
			rng = rand.New(rand.NewPCG(seed, seed>>1))
		}
		return &randomPolicy{rng: rng}, nil
	case SecondChance:
		return &secondChancePolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", memerr.ErrUnknownPolicy, string(policyType))
	}
}

// residentPages returns the occupied slots in frame order.
func residentPages(view View) []*pagemanager.Page {
	frames := view.Frames()
	pages := make([]*pagemanager.Page, 0, len(frames))
	for _, page := range frames {
		if page != nil {
			pages = append(pages, page)
		}
	}
	return pages
}
