package pagemanager

// MaxPagesPerAllocation caps the pages one new() may create.
const MaxPagesPerAllocation = 1 << 24

// PagesNeeded returns how many pages of pageSize bytes hold size bytes.
func PagesNeeded(size, pageSize int) int {
	if size <= 0 || pageSize <= 0 {
		return 0
	}
	n := size / pageSize
	if size%pageSize != 0 {
		n++
	}
	return n
}

// Allocation is the record behind one pointer returned by a `new` request.
type Allocation struct {
	Ptr           PointerID
	PID           ProcessID
	Pages         []*Page
	RequestedSize int
}

// Fragmentation is the internal fragmentation of the allocation in bytes.
func (a *Allocation) Fragmentation(pageSize int) int {
	return len(a.Pages)*pageSize - a.RequestedSize
}

// IDAllocator hands out page and pointer identifiers for one engine.
// Identifiers are never reused, even after the owning allocation is released.
type IDAllocator struct {
	nextPage PageID
	nextPtr  PointerID
}

// NewIDAllocator returns an allocator whose first page is 0 and first pointer is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{nextPtr: 1}
}

func (a *IDAllocator) NextPageID() PageID {
	id := a.nextPage
	a.nextPage++
	return id
}

func (a *IDAllocator) NextPointerID() PointerID {
	id := a.nextPtr
	a.nextPtr++
	return id
}

// Reset rewinds both counters. Only used when a whole engine is reset.
func (a *IDAllocator) Reset() {
	a.nextPage = 0
	a.nextPtr = 1
}
