package pagemanager

// --- Page Management ---

const (
	// InvalidFrame marks a page that does not occupy a frame slot.
	InvalidFrame = -1

	// DefaultPageSize is the page size in bytes used when none is configured.
	DefaultPageSize = 4000
	// DefaultTotalFrames is the number of RAM frames used when none is configured.
	DefaultTotalFrames = 100
)

// PageID represents a unique identifier for a simulated page.
type PageID uint64

// PointerID is the opaque handle returned to callers by an allocation.
type PointerID uint64

// ProcessID identifies a simulated process. It is supplied by the caller.
type ProcessID int64

// Page represents one page of a pointer's allocation. A page is either
// resident (it occupies exactly one frame) or swapped out to the virtual store.
type Page struct {
	id           PageID
	pid          ProcessID
	ptr          PointerID
	resident     bool
	frame        int
	lastUsed     uint64 // logical clock value of the last access
	referenceBit uint8  // second-chance bit
}

// NewPage creates a new, non-resident Page instance.
func NewPage(id PageID, pid ProcessID, ptr PointerID) *Page {
	return &Page{
		id:    id,
		pid:   pid,
		ptr:   ptr,
		frame: InvalidFrame,
	}
}

func (p *Page) GetPageID() PageID       { return p.id }
func (p *Page) GetPID() ProcessID       { return p.pid }
func (p *Page) GetPointer() PointerID   { return p.ptr }
func (p *Page) IsResident() bool        { return p.resident }
func (p *Page) GetFrame() int           { return p.frame }
func (p *Page) GetLastUsed() uint64     { return p.lastUsed }
func (p *Page) SetLastUsed(t uint64)    { p.lastUsed = t }
func (p *Page) GetReferenceBit() uint8  { return p.referenceBit }
func (p *Page) SetReferenceBit(b uint8) { p.referenceBit = b }

// MapToFrame marks the page resident in the given frame slot.
func (p *Page) MapToFrame(frame int) {
	p.resident = true
	p.frame = frame
}

// Unmap marks the page as swapped out.
func (p *Page) Unmap() {
	p.resident = false
	p.frame = InvalidFrame
}

// Info returns a value copy of the page's observable state.
func (p *Page) Info() PageInfo {
	return PageInfo{
		PageID:       p.id,
		PID:          p.pid,
		Pointer:      p.ptr,
		Resident:     p.resident,
		Frame:        p.frame,
		LastUsed:     p.lastUsed,
		ReferenceBit: p.referenceBit,
	}
}

// PageInfo is the read-only view of a page handed to snapshot consumers.
type PageInfo struct {
	PageID       PageID    `json:"page_id"`
	PID          ProcessID `json:"pid"`
	Pointer      PointerID `json:"ptr"`
	Resident     bool      `json:"in_ram"`
	Frame        int       `json:"frame"`
	LastUsed     uint64    `json:"last_used"`
	ReferenceBit uint8     `json:"reference_bit"`
}
