package frametable

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sushant-115/pagesim/core/memory/memerr"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	internaltelemetry "github.com/sushant-115/pagesim/internal/telemetry"
)

const (
	AccessCost = 1 // logical time of an access or a load into a free frame
	FaultCost  = 5 // logical time of a load that evicts another page
)

// FrameTable manages the simulated RAM frames and the virtual store that
// holds evicted pages. The replacement policy is consulted when a page must
// be loaded and every frame is occupied.
type FrameTable struct {
	frames   []*pagemanager.Page                      // Frame slots, nil when empty
	swapped  map[pagemanager.PageID]*pagemanager.Page // Virtual store
	queue    *replacer.EvictionQueue                  // Resident pages in load order
	policy   replacer.Policy
	resident int

	clock     uint64
	thrashing uint64
	loads     uint64
	evictions uint64

	logger  *zap.Logger
	metrics *internaltelemetry.PagingMetrics
}

// Option configures a FrameTable.
type Option func(*FrameTable)

func WithLogger(logger *zap.Logger) Option {
	return func(ft *FrameTable) {
		if logger != nil {
			ft.logger = logger
		}
	}
}

// WithMetrics records loads, faults and evictions on the given instruments.
func WithMetrics(metrics *internaltelemetry.PagingMetrics) Option {
	return func(ft *FrameTable) { ft.metrics = metrics }
}

// New creates a frame table with totalFrames empty slots.
func New(totalFrames int, policy replacer.Policy, opts ...Option) *FrameTable {
	ft := &FrameTable{
		frames:  make([]*pagemanager.Page, totalFrames),
		swapped: make(map[pagemanager.PageID]*pagemanager.Page),
		queue:   replacer.NewEvictionQueue(),
		policy:  policy,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ft)
	}
	ft.logger.Debug("frame table initialized",
		zap.Int("frames", totalFrames),
		zap.String("policy", policy.Type().String()))
	return ft
}

// Load makes the page resident. With a free frame the page takes the first
// empty slot; otherwise the policy picks a victim which is moved to the
// virtual store and the page takes over its slot.
func (ft *FrameTable) Load(page *pagemanager.Page) error {
	if page.IsResident() {
		ft.logger.Warn("page already resident, skipping load",
			zap.Uint64("page_id", uint64(page.GetPageID())),
			zap.Int("frame", page.GetFrame()))
		return nil
	}

	var frameIdx int
	full := ft.resident >= len(ft.frames)
	if !full {
		frameIdx = ft.firstFreeFrame()
		ft.clock += AccessCost
	} else {
		var err error
		frameIdx, err = ft.evict()
		if err != nil {
			return fmt.Errorf("failed to load page %d: %w", page.GetPageID(), err)
		}
		ft.clock += FaultCost
		ft.thrashing += FaultCost
	}

	delete(ft.swapped, page.GetPageID())
	ft.frames[frameIdx] = page
	page.MapToFrame(frameIdx)
	ft.queue.Push(page)
	ft.resident++
	ft.loads++
	page.SetReferenceBit(1)
	page.SetLastUsed(ft.clock)

	ft.metrics.RecordLoad(full)
	ft.logger.Debug("page loaded",
		zap.Uint64("page_id", uint64(page.GetPageID())),
		zap.Int("frame", frameIdx),
		zap.Bool("replaced", full),
		zap.Uint64("clock", ft.clock))
	return nil
}

// evict asks the policy for a victim, swaps it out and returns the freed frame.
func (ft *FrameTable) evict() (int, error) {
	if ft.resident == 0 {
		return -1, memerr.ErrNoEvictablePage
	}
	victim, err := ft.policy.Victim(ft)
	if err != nil {
		return -1, fmt.Errorf("%s policy failed to select a victim: %w", ft.policy.Type(), err)
	}
	if victim == nil || !victim.IsResident() || ft.frames[victim.GetFrame()] != victim {
		return -1, memerr.ErrInvalidVictim
	}

	frameIdx := victim.GetFrame()
	ft.queue.Remove(victim)
	ft.frames[frameIdx] = nil
	victim.Unmap()
	ft.swapped[victim.GetPageID()] = victim
	ft.resident--
	ft.evictions++

	ft.metrics.RecordEviction(FaultCost)
	ft.logger.Debug("page evicted",
		zap.Uint64("page_id", uint64(victim.GetPageID())),
		zap.Int("frame", frameIdx),
		zap.String("policy", ft.policy.Type().String()))
	return frameIdx, nil
}

func (ft *FrameTable) firstFreeFrame() int {
	for i, page := range ft.frames {
		if page == nil {
			return i
		}
	}
	return -1
}

// Touch records an access to a resident page.
func (ft *FrameTable) Touch(page *pagemanager.Page) {
	if !page.IsResident() {
		return
	}
	ft.clock += AccessCost
	page.SetLastUsed(ft.clock)
	page.SetReferenceBit(1)
	ft.metrics.RecordAccess()
}

// Release removes the page from RAM or from the virtual store.
func (ft *FrameTable) Release(page *pagemanager.Page) {
	if page.IsResident() {
		frameIdx := page.GetFrame()
		if frameIdx >= 0 && frameIdx < len(ft.frames) && ft.frames[frameIdx] == page {
			ft.frames[frameIdx] = nil
			ft.resident--
			ft.metrics.RecordRelease()
		}
		ft.queue.Remove(page)
		page.Unmap()
	} else {
		delete(ft.swapped, page.GetPageID())
	}
	ft.logger.Debug("page released", zap.Uint64("page_id", uint64(page.GetPageID())))
}

// Reset empties every frame and the virtual store and zeroes the counters.
func (ft *FrameTable) Reset() {
	ft.metrics.RecordReset(ft.resident)
	for i := range ft.frames {
		ft.frames[i] = nil
	}
	ft.swapped = make(map[pagemanager.PageID]*pagemanager.Page)
	ft.queue.Clear()
	ft.resident = 0
	ft.clock = 0
	ft.thrashing = 0
	ft.loads = 0
	ft.evictions = 0
}

// Frames returns the frame slots. It satisfies replacer.View and must not be modified.
func (ft *FrameTable) Frames() []*pagemanager.Page { return ft.frames }

func (ft *FrameTable) Queue() *replacer.EvictionQueue { return ft.queue }

// SwappedPages returns the pages in the virtual store ordered by PageID.
func (ft *FrameTable) SwappedPages() []*pagemanager.Page {
	pages := make([]*pagemanager.Page, 0, len(ft.swapped))
	for _, page := range ft.swapped {
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].GetPageID() < pages[j].GetPageID() })
	return pages
}

func (ft *FrameTable) Policy() replacer.PolicyType { return ft.policy.Type() }
func (ft *FrameTable) Capacity() int               { return len(ft.frames) }
func (ft *FrameTable) ResidentCount() int          { return ft.resident }
func (ft *FrameTable) SwappedCount() int           { return len(ft.swapped) }
func (ft *FrameTable) Clock() uint64               { return ft.clock }
func (ft *FrameTable) Thrashing() uint64           { return ft.thrashing }
func (ft *FrameTable) Loads() uint64               { return ft.loads }
func (ft *FrameTable) Evictions() uint64           { return ft.evictions }
