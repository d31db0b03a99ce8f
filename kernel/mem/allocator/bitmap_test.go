package allocator

import (
	"testing"

	"github.com/import1bones/MTOS/kernel"
	"github.com/stretchr/testify/require"
)

func TestBitmapAllocator_InitReservesOwnPages(t *testing.T) {
	var a BitmapAllocator
	require.NoError(t, a.Init(0, 16*PageSize))

	require.Equal(t, uint32(16), a.GetTotalPages())
	require.Less(t, a.GetFreePages(), a.GetTotalPages())
}

// TestBitmapAllocator_S2Contiguous reproduces spec scenario S2: init 16
// pages; alloc_page x4; free the second-allocated page; alloc_pages(2)
// fails; alloc_pages(1) returns the freed page.
func TestBitmapAllocator_S2Contiguous(t *testing.T) {
	var a BitmapAllocator
	require.NoError(t, a.Init(0, 16*PageSize))

	var allocated []kernel.Address
	for i := 0; i < 4; i++ {
		addr, err := a.AllocPage()
		require.NoError(t, err)
		allocated = append(allocated, addr)
	}

	secondPage := allocated[1]
	a.FreePage(secondPage)
	require.True(t, a.IsAvailable(secondPage))

	_, err := a.AllocPages(2)
	require.Error(t, err, "a lone freed page cannot satisfy a 2-page contiguous request")

	addr, err := a.AllocPages(1)
	require.NoError(t, err)
	require.Equal(t, secondPage, addr)
}

func TestBitmapAllocator_AllocExhaustion(t *testing.T) {
	var a BitmapAllocator
	require.NoError(t, a.Init(0, 4*PageSize))

	free := a.GetFreePages()
	for i := uint32(0); i < free; i++ {
		_, err := a.AllocPage()
		require.NoError(t, err)
	}
	_, err := a.AllocPage()
	require.ErrorIs(t, err, kernel.ErrCapacityExhausted)
}

func TestBitmapAllocator_AllocAlignedStride(t *testing.T) {
	var a BitmapAllocator
	require.NoError(t, a.Init(0, 32*PageSize))

	addr, err := a.AllocAligned(PageSize, 2*PageSize)
	require.NoError(t, err)
	require.Equal(t, uint32(0), uint32(addr-a.startAddr)%(2*PageSize))
}

func TestBitmapAllocator_FreeOutsideRegionIsNoop(t *testing.T) {
	var a BitmapAllocator
	require.NoError(t, a.Init(0, 4*PageSize))

	free := a.GetFreePages()
	a.FreePage(kernel.Address(100 * PageSize))
	require.Equal(t, free, a.GetFreePages())
}

func TestBitmapAllocator_AllocZeroSizeFails(t *testing.T) {
	var a BitmapAllocator
	require.NoError(t, a.Init(0, 4*PageSize))

	_, err := a.AllocAligned(0, PageSize)
	require.Error(t, err)
}
