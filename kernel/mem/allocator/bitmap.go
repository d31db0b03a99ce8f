package allocator

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"
)

const pagesPerWord = 32

// BitmapAllocator implements spec 4.1: one free/used bit per page, packed
// 32 per word, with a next-fit cursor carried across allocations.
type BitmapAllocator struct {
	bitmap        []uint32
	startAddr     kernel.Address
	totalPages    uint32
	freePages     uint32
	lastAllocated uint32
}

var _ PhysicalAllocator = (*BitmapAllocator)(nil)

// Name implements PhysicalAllocator.
func (a *BitmapAllocator) Name() string { return "bitmap" }

// Init implements PhysicalAllocator, mirroring bitmap_init: the bitmap
// itself is placed at the region's start and its own pages are marked used.
func (a *BitmapAllocator) Init(start, end kernel.Address) error {
	if end <= start || uint32(end-start)%PageSize != 0 {
		return kernel.NewError("bitmap", "region bounds must be page-aligned and non-empty")
	}

	a.startAddr = start
	a.totalPages = uint32(end-start) / PageSize
	a.freePages = a.totalPages
	a.lastAllocated = 0

	words := (a.totalPages + pagesPerWord - 1) / pagesPerWord
	a.bitmap = make([]uint32, words)

	bitmapBytes := words * 4
	bitmapPages := (bitmapBytes + PageSize - 1) / PageSize
	for i := uint32(0); i < bitmapPages; i++ {
		a.setPageUsed(i)
		a.freePages--
	}
	return nil
}

func (a *BitmapAllocator) setPageUsed(page uint32) {
	a.bitmap[page/pagesPerWord] |= 1 << (page % pagesPerWord)
}

func (a *BitmapAllocator) setPageFree(page uint32) {
	a.bitmap[page/pagesPerWord] &^= 1 << (page % pagesPerWord)
}

func (a *BitmapAllocator) isPageFree(page uint32) bool {
	return a.bitmap[page/pagesPerWord]&(1<<(page%pagesPerWord)) == 0
}

// findFreePage scans from start, wrapping once, as bitmap_alloc_page does.
func (a *BitmapAllocator) findFreePage(start uint32) (uint32, bool) {
	for page := start; page < a.totalPages; page++ {
		if a.isPageFree(page) {
			return page, true
		}
	}
	for page := uint32(0); page < start; page++ {
		if a.isPageFree(page) {
			return page, true
		}
	}
	return 0, false
}

// AllocPage implements PhysicalAllocator.
func (a *BitmapAllocator) AllocPage() (kernel.Address, error) {
	if a.freePages == 0 {
		return 0, kernel.ErrCapacityExhausted
	}
	page, ok := a.findFreePage(a.lastAllocated)
	if !ok {
		return 0, kernel.ErrCapacityExhausted
	}
	a.setPageUsed(page)
	a.freePages--
	a.lastAllocated = page
	return a.startAddr + kernel.Address(page*PageSize), nil
}

// AllocPages implements PhysicalAllocator: a linear scan for a run of n
// consecutive free bits, unaligned, matching bitmap_alloc_pages.
func (a *BitmapAllocator) AllocPages(n uint32) (kernel.Address, error) {
	if n == 0 {
		return 0, kernel.ErrInvalidArgument
	}
	if n > a.totalPages || a.freePages < n {
		return 0, kernel.ErrCapacityExhausted
	}

	for start := uint32(0); start <= a.totalPages-n; start++ {
		found := true
		for i := uint32(0); i < n; i++ {
			if !a.isPageFree(start + i) {
				found = false
				break
			}
		}
		if found {
			for i := uint32(0); i < n; i++ {
				a.setPageUsed(start + i)
				a.freePages--
			}
			return a.startAddr + kernel.Address(start*PageSize), nil
		}
	}
	return 0, kernel.ErrCapacityExhausted
}

// AllocAligned implements PhysicalAllocator per spec 4.1: scans starting
// addresses that are multiples of ceil(alignment/PageSize) pages, matching
// bitmap_alloc_aligned's strided search exactly (no power-of-two check on
// alignment itself).
func (a *BitmapAllocator) AllocAligned(size, alignment kernel.Size) (kernel.Address, error) {
	if size == 0 {
		return 0, kernel.ErrInvalidArgument
	}
	pagesNeeded := (uint32(size) + PageSize - 1) / PageSize
	alignPages := (uint32(alignment) + PageSize - 1) / PageSize
	if alignPages == 0 {
		alignPages = 1
	}
	if pagesNeeded > a.totalPages {
		return 0, kernel.ErrCapacityExhausted
	}

	for start := uint32(0); start <= a.totalPages-pagesNeeded; start += alignPages {
		found := true
		for i := uint32(0); i < pagesNeeded; i++ {
			if !a.isPageFree(start + i) {
				found = false
				break
			}
		}
		if found {
			for i := uint32(0); i < pagesNeeded; i++ {
				a.setPageUsed(start + i)
				a.freePages--
			}
			return a.startAddr + kernel.Address(start*PageSize), nil
		}
	}
	return 0, kernel.ErrCapacityExhausted
}

// FreePage implements PhysicalAllocator. Invalid or already-free addresses
// are silent no-ops, per spec 4.1.
func (a *BitmapAllocator) FreePage(addr kernel.Address) {
	if addr < a.startAddr {
		return
	}
	page := uint32(addr-a.startAddr) / PageSize
	if page >= a.totalPages || a.isPageFree(page) {
		return
	}
	a.setPageFree(page)
	a.freePages++
}

// FreePages implements PhysicalAllocator.
func (a *BitmapAllocator) FreePages(addr kernel.Address, n uint32) {
	for i := uint32(0); i < n; i++ {
		a.FreePage(addr + kernel.Address(i*PageSize))
	}
}

// IsAvailable implements PhysicalAllocator.
func (a *BitmapAllocator) IsAvailable(addr kernel.Address) bool {
	if addr < a.startAddr {
		return false
	}
	page := uint32(addr-a.startAddr) / PageSize
	if page >= a.totalPages {
		return false
	}
	return a.isPageFree(page)
}

// GetFreePages implements PhysicalAllocator.
func (a *BitmapAllocator) GetFreePages() uint32 { return a.freePages }

// GetTotalPages implements PhysicalAllocator.
func (a *BitmapAllocator) GetTotalPages() uint32 { return a.totalPages }

// PrintStats implements PhysicalAllocator.
func (a *BitmapAllocator) PrintStats(sink kernel.Sink) {
	used := a.totalPages - a.freePages
	util := 0.0
	if a.totalPages > 0 {
		util = 100.0 * float64(used) / float64(a.totalPages)
	}
	sink.PrintLine("BITMAP ALLOCATOR STATISTICS:")
	sink.PrintLine(fmt.Sprintf("  Total pages: %d", a.totalPages))
	sink.PrintLine(fmt.Sprintf("  Free pages: %d", a.freePages))
	sink.PrintLine(fmt.Sprintf("  Used pages: %d", used))
	sink.PrintLine(fmt.Sprintf("  Utilization: %.1f%%", util))
	sink.PrintLine(fmt.Sprintf("  Last allocated page: %d", a.lastAllocated))
}
