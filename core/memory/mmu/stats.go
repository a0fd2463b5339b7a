package mmu

import (
	"sort"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
)

// ThrashingAlertPercent is the share of logical time spent on evicting loads
// above which a run is flagged as thrashing.
const ThrashingAlertPercent = 50.0

// Stats is the accounting summary of an MMU at one point of a run.
type Stats struct {
	Policy             replacer.PolicyType `json:"policy"`
	RunningProcesses   int                 `json:"running_processes"`
	ResidentPages      int                 `json:"resident_pages"`
	SwappedPages       int                 `json:"swapped_pages"`
	RAMUsedBytes       int                 `json:"ram_used_bytes"`
	RAMUsedPercent     float64             `json:"ram_used_percent"`
	VirtualUsedBytes   int                 `json:"virtual_used_bytes"`
	VirtualUsedPercent float64             `json:"virtual_used_percent"`
	Clock              uint64              `json:"clock"`
	Thrashing          uint64              `json:"thrashing"`
	ThrashingPercent   float64             `json:"thrashing_percent"`
	PagesLoaded        uint64              `json:"pages_loaded"`
	PagesUnloaded      uint64              `json:"pages_unloaded"`
	PageFaults         uint64              `json:"page_faults"`
	FragmentationBytes int                 `json:"fragmentation_bytes"`
}

// IsThrashing reports whether evicting loads dominate the logical time.
func (s Stats) IsThrashing() bool {
	return s.Clock > 0 && s.ThrashingPercent >= ThrashingAlertPercent
}

// FrameSlot is one frame of RAM; Page is nil when the frame is empty.
type FrameSlot struct {
	Frame int                   `json:"frame"`
	Page  *pagemanager.PageInfo `json:"page,omitempty"`
}

// Snapshot is everything a presentation layer needs to render one step.
type Snapshot struct {
	Stats     Stats                   `json:"stats"`
	Frames    []FrameSlot             `json:"frames"`
	Virtual   []pagemanager.PageInfo  `json:"virtual"`
	Processes []pagemanager.ProcessID `json:"processes"`
}

// Stats computes the accounting summary. It does not modify the MMU.
func (m *MMU) Stats() Stats {
	ft := m.frames
	ramCapacity := ft.Capacity() * m.cfg.PageSize
	ramUsed := ft.ResidentCount() * m.cfg.PageSize
	virtualUsed := ft.SwappedCount() * m.cfg.PageSize

	fragmentation := 0
	for _, alloc := range m.pointers {
		fragmentation += alloc.Fragmentation(m.cfg.PageSize)
	}

	return Stats{
		Policy:             ft.Policy(),
		RunningProcesses:   len(m.processes),
		ResidentPages:      ft.ResidentCount(),
		SwappedPages:       ft.SwappedCount(),
		RAMUsedBytes:       ramUsed,
		RAMUsedPercent:     percent(uint64(ramUsed), uint64(ramCapacity)),
		VirtualUsedBytes:   virtualUsed,
		VirtualUsedPercent: percent(uint64(virtualUsed), uint64(ramCapacity)),
		Clock:              ft.Clock(),
		Thrashing:          ft.Thrashing(),
		ThrashingPercent:   percent(ft.Thrashing(), ft.Clock()),
		PagesLoaded:        ft.Loads(),
		PagesUnloaded:      ft.Evictions(),
		PageFaults:         m.faults,
		FragmentationBytes: fragmentation,
	}
}

// Snapshot returns the stats together with frame occupancy, the virtual
// store and the running processes.
func (m *MMU) Snapshot() Snapshot {
	frames := m.frames.Frames()
	slots := make([]FrameSlot, len(frames))
	for i, page := range frames {
		slots[i] = FrameSlot{Frame: i}
		if page != nil {
			info := page.Info()
			slots[i].Page = &info
		}
	}

	swapped := m.frames.SwappedPages()
	virtual := make([]pagemanager.PageInfo, len(swapped))
	for i, page := range swapped {
		virtual[i] = page.Info()
	}

	return Snapshot{
		Stats:     m.Stats(),
		Frames:    slots,
		Virtual:   virtual,
		Processes: m.RunningProcesses(),
	}
}

// RunningProcesses returns the ids of live processes in ascending order.
func (m *MMU) RunningProcesses() []pagemanager.ProcessID {
	pids := make([]pagemanager.ProcessID, 0, len(m.processes))
	for pid := range m.processes {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
