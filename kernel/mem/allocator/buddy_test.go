package allocator

import (
	"testing"

	"github.com/import1bones/MTOS/kernel"
	"github.com/stretchr/testify/require"
)

// TestBuddyAllocator_S1SplitMerge reproduces spec scenario S1: init 64
// pages; alloc_pages(1) -> A; alloc_pages(1) -> B; alloc_pages(2) -> C;
// free A then B and assert B coalesces with the buddy split off for it into
// an order-1 block (A is the lone order-0 block beside the metadata page, so
// it has no free buddy), then freeing C returns total free pages to the
// initial count.
func TestBuddyAllocator_S1SplitMerge(t *testing.T) {
	var a BuddyAllocator
	require.NoError(t, a.Init(0, 64*PageSize))

	initialFree := a.GetFreePages()

	addrA, err := a.AllocPages(1)
	require.NoError(t, err)
	addrB, err := a.AllocPages(1)
	require.NoError(t, err)
	addrC, err := a.AllocPages(2)
	require.NoError(t, err)

	a.FreePage(addrA)
	a.FreePage(addrB)
	require.True(t, a.IsAvailable(addrA))

	indexB := uint32(addrB-a.startAddr) / PageSize
	mergedIndex := indexB &^ 1
	require.True(t, a.blocks[mergedIndex].isFree)
	require.Equal(t, uint8(1), a.blocks[mergedIndex].order, "B and its order-0 buddy must coalesce into order-1")

	require.Equal(t, initialFree-2, a.GetFreePages(), "C (2 pages) is still outstanding; A and B (1 page each) are back")

	// Freeing C should coalesce everything back to the initial partition.
	a.FreePages(addrC, 2)

	require.Equal(t, initialFree, a.GetFreePages())
}

func TestBuddyAllocator_AllocPagesRoundsUpToOrder(t *testing.T) {
	var a BuddyAllocator
	require.NoError(t, a.Init(0, 64*PageSize))

	addr, err := a.AllocPages(3)
	require.NoError(t, err)

	index := uint32(addr-a.startAddr) / PageSize
	require.Equal(t, uint8(2), a.blocks[index].order, "3 pages must round up to an order-2 (4-page) block")
}

func TestBuddyAllocator_BuddyIdentityIsSymmetric(t *testing.T) {
	var a BuddyAllocator
	require.NoError(t, a.Init(0, 64*PageSize))

	buddy, ok := a.buddyIndex(4, 2)
	require.True(t, ok)
	back, ok := a.buddyIndex(buddy, 2)
	require.True(t, ok)
	require.EqualValues(t, 4, back)
}

func TestBuddyAllocator_FreeAlreadyFreeIsNoop(t *testing.T) {
	var a BuddyAllocator
	require.NoError(t, a.Init(0, 16*PageSize))

	addr, err := a.AllocPages(1)
	require.NoError(t, err)
	a.FreePage(addr)
	freeAfterFirst := a.GetFreePages()

	a.FreePage(addr) // double free
	require.Equal(t, freeAfterFirst, a.GetFreePages())
}

func TestBuddyAllocator_ExhaustionAtMaxOrder(t *testing.T) {
	var a BuddyAllocator
	require.NoError(t, a.Init(0, 8*PageSize))

	_, err := a.AllocPages(1 << 30)
	require.ErrorIs(t, err, kernel.ErrCapacityExhausted)
}

func TestBuddyAllocator_AllocAlignedNaturalAlignment(t *testing.T) {
	var a BuddyAllocator
	require.NoError(t, a.Init(0, 64*PageSize))

	addr, err := a.AllocAligned(2*PageSize, 4*PageSize)
	require.NoError(t, err)
	require.Equal(t, uint32(0), uint32(addr-a.startAddr)%(4*PageSize))
}
