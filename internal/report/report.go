// Package report renders engine snapshots as plain-text tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sushant-115/pagesim/core/memory/mmu"
	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/simulation"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteStats prints one column per engine so policies can be compared.
func WriteStats(w io.Writer, stats []mmu.Stats) error {
	tw := newTabWriter(w)

	row := func(label string, value func(mmu.Stats) string) {
		cells := make([]string, 0, len(stats)+1)
		cells = append(cells, label)
		for _, s := range stats {
			cells = append(cells, value(s))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	row("POLICY", func(s mmu.Stats) string { return s.Policy.String() })
	row("processes", func(s mmu.Stats) string { return fmt.Sprint(s.RunningProcesses) })
	row("clock", func(s mmu.Stats) string { return fmt.Sprint(s.Clock) })
	row("thrashing", func(s mmu.Stats) string {
		mark := ""
		if s.IsThrashing() {
			mark = " !"
		}
		return fmt.Sprintf("%d (%.1f%%)%s", s.Thrashing, s.ThrashingPercent, mark)
	})
	row("RAM used", func(s mmu.Stats) string {
		return fmt.Sprintf("%d pages / %d B (%.1f%%)", s.ResidentPages, s.RAMUsedBytes, s.RAMUsedPercent)
	})
	row("virtual used", func(s mmu.Stats) string {
		return fmt.Sprintf("%d pages / %d B (%.1f%%)", s.SwappedPages, s.VirtualUsedBytes, s.VirtualUsedPercent)
	})
	row("pages loaded", func(s mmu.Stats) string { return fmt.Sprint(s.PagesLoaded) })
	row("pages unloaded", func(s mmu.Stats) string { return fmt.Sprint(s.PagesUnloaded) })
	row("page faults", func(s mmu.Stats) string { return fmt.Sprint(s.PageFaults) })
	row("fragmentation", func(s mmu.Stats) string { return fmt.Sprintf("%d B", s.FragmentationBytes) })

	return tw.Flush()
}

// WriteFrames prints the occupied frames of a snapshot; empty frames are summarized.
func WriteFrames(w io.Writer, snap mmu.Snapshot) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "FRAME\tPAGE\tPID\tPTR\tLAST USED\tREF")
	empty := 0
	for _, slot := range snap.Frames {
		if slot.Page == nil {
			empty++
			continue
		}
		writePageRow(tw, fmt.Sprint(slot.Frame), *slot.Page)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d frames free\n", empty, len(snap.Frames))
	return err
}

// WriteVirtual prints the pages held in the virtual store.
func WriteVirtual(w io.Writer, snap mmu.Snapshot) error {
	if len(snap.Virtual) == 0 {
		_, err := fmt.Fprintln(w, "virtual store is empty")
		return err
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "FRAME\tPAGE\tPID\tPTR\tLAST USED\tREF")
	for _, info := range snap.Virtual {
		writePageRow(tw, "-", info)
	}
	return tw.Flush()
}

// WritePages prints the pages of one pointer.
func WritePages(w io.Writer, pages []pagemanager.PageInfo) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "FRAME\tPAGE\tPID\tPTR\tLAST USED\tREF")
	for _, info := range pages {
		frame := "-"
		if info.Resident {
			frame = fmt.Sprint(info.Frame)
		}
		writePageRow(tw, frame, info)
	}
	return tw.Flush()
}

func writePageRow(tw io.Writer, frame string, info pagemanager.PageInfo) {
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", frame, info.PageID, info.PID, info.Pointer, info.LastUsed, info.ReferenceBit)
}

// StepLine is a one-line summary of a step, e.g.
// "[12/500] use(3)  FIFO clock=61 faults=2  OPT clock=56 faults=1".
func StepLine(step simulation.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d] %s", step.Index+1, step.Total, step.Op)
	for _, res := range step.Results {
		s := res.Snapshot.Stats
		fmt.Fprintf(&b, "  %s clock=%d faults=%d ram=%d virt=%d", res.Policy, s.Clock, s.PageFaults, s.ResidentPages, s.SwappedPages)
		if res.Error != "" {
			fmt.Fprintf(&b, " err=%q", res.Error)
		}
	}
	return b.String()
}
