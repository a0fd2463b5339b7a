// Package mmu is the simulated memory management unit. It owns processes and
// their pointers, creates and destroys pages, and drives the frame table.
//
// An MMU is not safe for concurrent use; callers apply one operation at a
// time and each call completes, including any evictions, before returning.
package mmu

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/frametable"
	"github.com/sushant-115/pagesim/core/memory/memerr"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	internaltelemetry "github.com/sushant-115/pagesim/internal/telemetry"
)

// Config holds the constants fixed for the lifetime of one MMU.
type Config struct {
	PageSize    int                 `yaml:"page_size"`
	TotalFrames int                 `yaml:"total_frames"`
	Policy      replacer.PolicyType `yaml:"policy"`
}

func DefaultConfig() Config {
	return Config{
		PageSize:    pagemanager.DefaultPageSize,
		TotalFrames: pagemanager.DefaultTotalFrames,
		Policy:      replacer.FIFO,
	}
}

func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", memerr.ErrInvalidConfig, c.PageSize)
	}
	if c.TotalFrames <= 0 {
		return fmt.Errorf("%w: total frames must be positive, got %d", memerr.ErrInvalidConfig, c.TotalFrames)
	}
	if _, err := replacer.ParsePolicyType(string(c.Policy)); err != nil {
		return err
	}
	return nil
}

// MMU is the process/pointer lifecycle manager.
type MMU struct {
	cfg       Config
	ids       *pagemanager.IDAllocator
	frames    *frametable.FrameTable
	pointers  map[pagemanager.PointerID]*pagemanager.Allocation
	processes map[pagemanager.ProcessID][]pagemanager.PointerID
	faults    uint64

	logger  *zap.Logger
	metrics *internaltelemetry.PagingMetrics
}

type options struct {
	logger    *zap.Logger
	metrics   *internaltelemetry.PagingMetrics
	lookahead replacer.Lookahead
	rng       *rand.Rand
}

// Option configures an MMU.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records the engine's activity. The instruments are scoped to
// the configured policy.
func WithMetrics(metrics *internaltelemetry.PagingMetrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithLookahead supplies the upcoming operations; required for the OPT policy.
func WithLookahead(l replacer.Lookahead) Option {
	return func(o *options) { o.lookahead = l }
}

// WithRand supplies the random source of the RND policy.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// New creates an MMU. An unknown policy or an OPT policy without a lookahead
// is a configuration error.
func New(cfg Config, opts ...Option) (*MMU, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	policyType, err := replacer.ParsePolicyType(string(cfg.Policy))
	if err != nil {
		return nil, err
	}
	cfg.Policy = policyType
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var policyOpts []replacer.Option
	if o.lookahead != nil {
		policyOpts = append(policyOpts, replacer.WithLookahead(o.lookahead))
	}
	if o.rng != nil {
		policyOpts = append(policyOpts, replacer.WithRand(o.rng))
	}
	policy, err := replacer.New(policyType, policyOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s policy: %w", policyType, err)
	}

	logger := o.logger.With(zap.String("policy", policyType.String()))
	metrics := o.metrics.ForPolicy(policyType.String())

	m := &MMU{
		cfg:       cfg,
		ids:       pagemanager.NewIDAllocator(),
		frames:    frametable.New(cfg.TotalFrames, policy, frametable.WithLogger(logger), frametable.WithMetrics(metrics)),
		pointers:  make(map[pagemanager.PointerID]*pagemanager.Allocation),
		processes: make(map[pagemanager.ProcessID][]pagemanager.PointerID),
		logger:    logger,
		metrics:   metrics,
	}
	logger.Info("MMU initialized",
		zap.Int("page_size", cfg.PageSize),
		zap.Int("total_frames", cfg.TotalFrames))
	return m, nil
}

// Allocate serves new(pid, size): it creates ceil(size/pageSize) pages,
// loads each of them and returns the new pointer.
func (m *MMU) Allocate(pid pagemanager.ProcessID, size int) (pagemanager.PointerID, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: new(%d,%d) has a negative size", memerr.ErrInvalidSize, pid, size)
	}
	numPages := pagemanager.PagesNeeded(size, m.cfg.PageSize)
	if numPages > pagemanager.MaxPagesPerAllocation {
		return 0, fmt.Errorf("%w: new(%d,%d) needs %d pages, limit is %d",
			memerr.ErrInvalidSize, pid, size, numPages, pagemanager.MaxPagesPerAllocation)
	}

	ptr := m.ids.NextPointerID()
	alloc := &pagemanager.Allocation{
		Ptr:           ptr,
		PID:           pid,
		Pages:         make([]*pagemanager.Page, 0, numPages),
		RequestedSize: size,
	}
	for i := 0; i < numPages; i++ {
		page := pagemanager.NewPage(m.ids.NextPageID(), pid, ptr)
		m.load(page)
		alloc.Pages = append(alloc.Pages, page)
	}

	m.pointers[ptr] = alloc
	m.processes[pid] = append(m.processes[pid], ptr)

	m.logger.Debug("pointer allocated",
		zap.Int64("pid", int64(pid)),
		zap.Uint64("ptr", uint64(ptr)),
		zap.Int("size", size),
		zap.Int("pages", numPages))
	return ptr, nil
}

// Access serves use(ptr). Pages are visited in allocation order; a page that
// is not resident faults and is loaded.
func (m *MMU) Access(ptr pagemanager.PointerID) error {
	alloc, ok := m.pointers[ptr]
	if !ok {
		m.logger.Warn("access to invalid pointer", zap.Uint64("ptr", uint64(ptr)))
		return fmt.Errorf("%w: %d", memerr.ErrInvalidPointer, ptr)
	}
	for _, page := range alloc.Pages {
		if !page.IsResident() {
			m.faults++
			m.metrics.RecordFault()
			m.load(page)
		} else {
			m.frames.Touch(page)
		}
	}
	return nil
}

// Release serves delete(ptr). An unknown pointer is ignored; the return
// value reports whether anything was released.
func (m *MMU) Release(ptr pagemanager.PointerID) bool {
	alloc, ok := m.pointers[ptr]
	if !ok {
		return false
	}
	for _, page := range alloc.Pages {
		m.frames.Release(page)
	}
	delete(m.pointers, ptr)

	ptrs := m.processes[alloc.PID]
	for i, p := range ptrs {
		if p == ptr {
			m.processes[alloc.PID] = append(ptrs[:i:i], ptrs[i+1:]...)
			break
		}
	}
	m.logger.Debug("pointer released", zap.Uint64("ptr", uint64(ptr)), zap.Int("pages", len(alloc.Pages)))
	return true
}

// Kill serves kill(pid): every pointer of the process is released and the
// process is forgotten. Unknown processes are ignored.
func (m *MMU) Kill(pid pagemanager.ProcessID) bool {
	ptrs, ok := m.processes[pid]
	if !ok {
		return false
	}
	for _, ptr := range append([]pagemanager.PointerID(nil), ptrs...) {
		m.Release(ptr)
	}
	delete(m.processes, pid)
	m.logger.Debug("process killed", zap.Int64("pid", int64(pid)), zap.Int("pointers", len(ptrs)))
	return true
}

// Apply dispatches one instruction. For new() the returned pointer is the
// one allocated; for the other ops it is the op's own pointer, if any.
func (m *MMU) Apply(op instructions.Op) (pagemanager.PointerID, error) {
	switch op.Type {
	case instructions.OpNew:
		return m.Allocate(op.PID, op.Size)
	case instructions.OpUse:
		return op.Ptr, m.Access(op.Ptr)
	case instructions.OpDelete:
		m.Release(op.Ptr)
		return op.Ptr, nil
	case instructions.OpKill:
		m.Kill(op.PID)
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported instruction %q", string(op.Type))
	}
}

// load brings a page into RAM. A failure means the frame table's accounting
// is already broken, so it is not recoverable.
func (m *MMU) load(page *pagemanager.Page) {
	if err := m.frames.Load(page); err != nil {
		m.logger.Error("paging invariant violated", zap.Error(err))
		panic(fmt.Errorf("mmu: %w", err))
	}
}

// Reset discards every process, pointer and page and zeroes the counters.
func (m *MMU) Reset() {
	m.ids.Reset()
	m.frames.Reset()
	m.pointers = make(map[pagemanager.PointerID]*pagemanager.Allocation)
	m.processes = make(map[pagemanager.ProcessID][]pagemanager.PointerID)
	m.faults = 0
}

func (m *MMU) Config() Config                     { return m.cfg }
func (m *MMU) Policy() replacer.PolicyType        { return m.frames.Policy() }
func (m *MMU) FrameTable() *frametable.FrameTable { return m.frames }

// Pages returns the pages of a live pointer in allocation order.
func (m *MMU) Pages(ptr pagemanager.PointerID) ([]pagemanager.PageInfo, bool) {
	alloc, ok := m.pointers[ptr]
	if !ok {
		return nil, false
	}
	infos := make([]pagemanager.PageInfo, len(alloc.Pages))
	for i, page := range alloc.Pages {
		infos[i] = page.Info()
	}
	return infos, true
}

// Pointers returns the live pointers of a process in allocation order.
func (m *MMU) Pointers(pid pagemanager.ProcessID) ([]pagemanager.PointerID, bool) {
	ptrs, ok := m.processes[pid]
	if !ok {
		return nil, false
	}
	return append([]pagemanager.PointerID(nil), ptrs...), true
}
