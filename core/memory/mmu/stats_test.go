package mmu

import (
	"testing"

	"github.com/stretchr/testify/require"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
	"github.com/sushant-115/pagesim/core/memory/replacer"
)

func TestStats_Percentages(t *testing.T) {
	m := setupMMU(t, 4, replacer.FIFO)
	for i := 0; i < 6; i++ {
		_, err := m.Allocate(1, 1)
		require.NoError(t, err)
	}

	stats := m.Stats()
	require.Equal(t, replacer.FIFO, stats.Policy)
	require.Equal(t, 1, stats.RunningProcesses)
	require.Equal(t, 4, stats.ResidentPages)
	require.Equal(t, 2, stats.SwappedPages)
	require.Equal(t, 16000, stats.RAMUsedBytes)
	require.InDelta(t, 100.0, stats.RAMUsedPercent, 0.001)
	require.Equal(t, 8000, stats.VirtualUsedBytes)
	require.InDelta(t, 50.0, stats.VirtualUsedPercent, 0.001)

	// 4 free loads and 2 evicting loads.
	require.Equal(t, uint64(14), stats.Clock)
	require.Equal(t, uint64(10), stats.Thrashing)
	require.InDelta(t, 100*10.0/14.0, stats.ThrashingPercent, 0.001)
	require.True(t, stats.IsThrashing())
	require.Equal(t, 6*(4000-1), stats.FragmentationBytes)
}

func TestStats_Empty(t *testing.T) {
	m := setupMMU(t, 4, replacer.SecondChance)
	stats := m.Stats()
	require.Zero(t, stats.ThrashingPercent)
	require.False(t, stats.IsThrashing())
	require.Zero(t, stats.RAMUsedPercent)
}

func TestSnapshot(t *testing.T) {
	m := setupMMU(t, 2, replacer.FIFO)
	for pid := 1; pid <= 3; pid++ {
		_, err := m.Allocate(pagemanager.ProcessID(pid), 1)
		require.NoError(t, err)
	}

	snap := m.Snapshot()
	require.Len(t, snap.Frames, 2)
	require.NotNil(t, snap.Frames[0].Page)
	require.Equal(t, 0, snap.Frames[0].Frame)
	require.Len(t, snap.Virtual, 1)
	require.Equal(t, pagemanager.PageID(0), snap.Virtual[0].PageID)
	require.Len(t, snap.Processes, 3)
	require.Equal(t, snap.Stats, m.Stats())

	// The snapshot is a copy.
	require.NoError(t, m.Access(1))
	require.Equal(t, pagemanager.PageID(0), snap.Virtual[0].PageID)
	require.Equal(t, pagemanager.PageID(1), m.Snapshot().Virtual[0].PageID)
}
