package pagemanager

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPagesNeeded(t *testing.T) {
	cases := []struct {
		size, pageSize, want int
	}{
		{0, 4000, 0},
		{1, 4000, 1},
		{4000, 4000, 1},
		{4001, 4000, 2},
		{10000, 4000, 3},
		{-5, 4000, 0},
		{100, 0, 0},
		{math.MaxInt64, 4000, math.MaxInt64/4000 + 1},
		{math.MaxInt64, 1, math.MaxInt64},
		{math.MaxInt64 - 7, 8, math.MaxInt64 / 8},
	}
	for _, c := range cases {
		require.Equal(t, c.want, PagesNeeded(c.size, c.pageSize), "size=%d pageSize=%d", c.size, c.pageSize)
	}
}

func TestAllocation_Fragmentation(t *testing.T) {
	alloc := &Allocation{RequestedSize: 4500}
	for i := 0; i < PagesNeeded(4500, 4000); i++ {
		alloc.Pages = append(alloc.Pages, NewPage(PageID(i), 1, 1))
	}
	require.Equal(t, 3500, alloc.Fragmentation(4000))

	exact := &Allocation{RequestedSize: 4000, Pages: []*Page{NewPage(0, 1, 1)}}
	require.Zero(t, exact.Fragmentation(4000))
}

func TestIDAllocator(t *testing.T) {
	ids := NewIDAllocator()
	require.Equal(t, PageID(0), ids.NextPageID())
	require.Equal(t, PageID(1), ids.NextPageID())
	require.Equal(t, PointerID(1), ids.NextPointerID())
	require.Equal(t, PointerID(2), ids.NextPointerID())

	// Two allocators never share state.
	other := NewIDAllocator()
	require.Equal(t, PageID(0), other.NextPageID())

	ids.Reset()
	require.Equal(t, PageID(0), ids.NextPageID())
	require.Equal(t, PointerID(1), ids.NextPointerID())
}

func TestPage_MapAndUnmap(t *testing.T) {
	page := NewPage(7, 2, 3)
	require.False(t, page.IsResident())
	require.Equal(t, InvalidFrame, page.GetFrame())

	page.MapToFrame(4)
	page.SetLastUsed(12)
	page.SetReferenceBit(1)
	info := page.Info()
	require.Equal(t, PageInfo{PageID: 7, PID: 2, Pointer: 3, Resident: true, Frame: 4, LastUsed: 12, ReferenceBit: 1}, info)

	page.Unmap()
	require.False(t, page.IsResident())
	require.Equal(t, InvalidFrame, page.GetFrame())
	require.Equal(t, uint64(12), page.GetLastUsed())
}
