package allocator

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"
)

// MaxOrder bounds the buddy free-list index: order 20 covers a run of
// 2^20 pages (4GB of 4KB pages), matching the original's MAX_ORDER.
const MaxOrder = 20

// buddyBlock is the per-page metadata record spec 4.2 requires: free-list
// links by page index (not pointers — Go slices already give stable
// indices, so there is no need for the teacher's raw pointer arithmetic),
// an is-free flag and the block's current order.
type buddyBlock struct {
	next, prev int32 // page index of list neighbor, -1 if none
	isFree     bool
	order      uint8
}

const noBlock = -1

// BuddyAllocator implements spec 4.2: power-of-two free lists with
// XOR-identity buddies, splitting on allocation and coalescing on free.
type BuddyAllocator struct {
	startAddr  kernel.Address
	totalPages uint32
	blocks     []buddyBlock
	freeLists  [MaxOrder + 1]int32 // head page index per order, -1 if empty

	allocatedPages  uint32
	allocationCount uint32
}

var _ PhysicalAllocator = (*BuddyAllocator)(nil)

// Name implements PhysicalAllocator.
func (a *BuddyAllocator) Name() string { return "buddy" }

// Init implements PhysicalAllocator, mirroring buddy_init: block metadata
// occupies the region's low pages, and the remaining pages are partitioned
// into the largest naturally aligned power-of-two runs that fit (each run
// starts at a page index that is a multiple of its size), each seeded into
// its free list (Open Question decision 3 in DESIGN.md).
func (a *BuddyAllocator) Init(start, end kernel.Address) error {
	if end <= start || uint32(end-start)%PageSize != 0 {
		return kernel.NewError("buddy", "region bounds must be page-aligned and non-empty")
	}

	a.startAddr = start
	a.totalPages = uint32(end-start) / PageSize
	a.allocatedPages = 0
	a.allocationCount = 0

	for i := range a.freeLists {
		a.freeLists[i] = noBlock
	}

	a.blocks = make([]buddyBlock, a.totalPages)
	for i := range a.blocks {
		a.blocks[i] = buddyBlock{next: noBlock, prev: noBlock, isFree: false, order: 0}
	}

	const blockRecordSize = 10 // bytes: two int32 links plus flag+order packed
	metadataBytes := a.totalPages * blockRecordSize
	metadataPages := (metadataBytes + PageSize - 1) / PageSize
	if metadataPages > a.totalPages {
		return kernel.NewError("buddy", "region too small to hold block metadata")
	}

	current := metadataPages
	for current < a.totalPages {
		remaining := a.totalPages - current
		maxOrder := uint8(0)
		for maxOrder < MaxOrder && (uint32(1)<<(maxOrder+1)) <= remaining && current%(uint32(1)<<(maxOrder+1)) == 0 {
			maxOrder++
		}
		a.addToFreeList(current, maxOrder)
		current += uint32(1) << maxOrder
	}
	return nil
}

func (a *BuddyAllocator) addToFreeList(index uint32, order uint8) {
	a.blocks[index].order = order
	a.blocks[index].isFree = true
	a.blocks[index].prev = noBlock
	a.blocks[index].next = a.freeLists[order]
	if a.freeLists[order] != noBlock {
		a.blocks[a.freeLists[order]].prev = int32(index)
	}
	a.freeLists[order] = int32(index)
}

func (a *BuddyAllocator) removeFromFreeList(index uint32, order uint8) {
	b := &a.blocks[index]
	if b.prev != noBlock {
		a.blocks[b.prev].next = b.next
	} else {
		a.freeLists[order] = b.next
	}
	if b.next != noBlock {
		a.blocks[b.next].prev = b.prev
	}
	b.isFree = false
	b.next, b.prev = noBlock, noBlock
}

// buddyIndex returns the buddy page index of a block at index of the given
// order, or (0, false) if it falls outside the managed region.
func (a *BuddyAllocator) buddyIndex(index uint32, order uint8) (uint32, bool) {
	buddy := index ^ (uint32(1) << order)
	if buddy >= a.totalPages {
		return 0, false
	}
	return buddy, true
}

// split detaches higher halves down to targetOrder, returning the index of
// the order-targetOrder block that remains for the caller.
func (a *BuddyAllocator) split(index uint32, targetOrder uint8) uint32 {
	order := a.blocks[index].order
	for order > targetOrder {
		order--
		if buddy, ok := a.buddyIndex(index, order); ok {
			a.addToFreeList(buddy, order)
		}
		a.blocks[index].order = order
	}
	return index
}

// merge coalesces a freed block with its buddy chain as far as possible,
// returning the index and order of the fully merged block.
func (a *BuddyAllocator) merge(index uint32) (uint32, uint8) {
	order := a.blocks[index].order
	for order < MaxOrder {
		buddy, ok := a.buddyIndex(index, order)
		if !ok || !a.blocks[buddy].isFree || a.blocks[buddy].order != order {
			break
		}
		a.removeFromFreeList(buddy, order)
		if buddy < index {
			index = buddy
		}
		order++
		a.blocks[index].order = order
	}
	return index, order
}

func orderForPages(pages uint32) (uint8, bool) {
	order := uint8(0)
	blockPages := uint32(1)
	for blockPages < pages {
		if order == MaxOrder {
			return 0, false
		}
		order++
		blockPages <<= 1
	}
	return order, true
}

// AllocPage implements PhysicalAllocator.
func (a *BuddyAllocator) AllocPage() (kernel.Address, error) {
	return a.AllocPages(1)
}

// AllocPages implements PhysicalAllocator, mirroring buddy_alloc_pages:
// find the smallest satisfying free list, detach its head, split down to
// the requested order, and return the block's address.
func (a *BuddyAllocator) AllocPages(n uint32) (kernel.Address, error) {
	if n == 0 {
		return 0, kernel.ErrInvalidArgument
	}
	order, ok := orderForPages(n)
	if !ok {
		return 0, kernel.ErrCapacityExhausted
	}

	var blockIndex uint32
	found := false
	searchOrder := order
	for ; searchOrder <= MaxOrder; searchOrder++ {
		if a.freeLists[searchOrder] != noBlock {
			blockIndex = uint32(a.freeLists[searchOrder])
			a.removeFromFreeList(blockIndex, searchOrder)
			found = true
			break
		}
	}
	if !found {
		return 0, kernel.ErrCapacityExhausted
	}

	if a.blocks[blockIndex].order > order {
		blockIndex = a.split(blockIndex, order)
	}

	a.blocks[blockIndex].isFree = false
	a.allocatedPages += uint32(1) << order
	a.allocationCount++

	return a.startAddr + kernel.Address(blockIndex*PageSize), nil
}

// AllocAligned implements PhysicalAllocator per spec 4.2: every buddy
// allocation is naturally aligned to its block size, so this rounds the
// request up to the order satisfying both size and alignment and delegates
// to the standard path.
func (a *BuddyAllocator) AllocAligned(size, alignment kernel.Size) (kernel.Address, error) {
	if size == 0 {
		return 0, kernel.ErrInvalidArgument
	}
	pagesForSize := (uint32(size) + PageSize - 1) / PageSize
	pagesForAlign := (uint32(alignment) + PageSize - 1) / PageSize
	if pagesForAlign > pagesForSize {
		pagesForSize = pagesForAlign
	}
	order, ok := orderForPages(pagesForSize)
	if !ok {
		return 0, kernel.ErrCapacityExhausted
	}
	return a.AllocPages(uint32(1) << order)
}

// FreePage implements PhysicalAllocator.
func (a *BuddyAllocator) FreePage(addr kernel.Address) {
	a.FreePages(addr, 1)
}

// FreePages implements PhysicalAllocator, mirroring buddy_free_pages: the
// count argument is ignored beyond validating the address, because the
// block record already knows its own order, exactly as the original does
// (it calls buddy_free_page for a single page and trusts block->order
// otherwise).
func (a *BuddyAllocator) FreePages(addr kernel.Address, _ uint32) {
	if addr < a.startAddr {
		return
	}
	index := uint32(addr-a.startAddr) / PageSize
	if index >= a.totalPages {
		return
	}
	if a.blocks[index].isFree {
		return
	}

	a.allocatedPages -= uint32(1) << a.blocks[index].order
	a.allocationCount--

	mergedIndex, mergedOrder := a.merge(index)
	a.addToFreeList(mergedIndex, mergedOrder)
}

// IsAvailable implements PhysicalAllocator.
func (a *BuddyAllocator) IsAvailable(addr kernel.Address) bool {
	if addr < a.startAddr {
		return false
	}
	index := uint32(addr-a.startAddr) / PageSize
	if index >= a.totalPages {
		return false
	}
	return a.blocks[index].isFree
}

// GetFreePages implements PhysicalAllocator.
func (a *BuddyAllocator) GetFreePages() uint32 { return a.totalPages - a.allocatedPages }

// GetTotalPages implements PhysicalAllocator.
func (a *BuddyAllocator) GetTotalPages() uint32 { return a.totalPages }

// PrintStats implements PhysicalAllocator.
func (a *BuddyAllocator) PrintStats(sink kernel.Sink) {
	util := 0.0
	if a.totalPages > 0 {
		util = 100.0 * float64(a.allocatedPages) / float64(a.totalPages)
	}
	sink.PrintLine("BUDDY ALLOCATOR STATISTICS:")
	sink.PrintLine(fmt.Sprintf("  Total pages: %d", a.totalPages))
	sink.PrintLine(fmt.Sprintf("  Allocated pages: %d", a.allocatedPages))
	sink.PrintLine(fmt.Sprintf("  Free pages: %d", a.GetFreePages()))
	sink.PrintLine(fmt.Sprintf("  Utilization: %.1f%%", util))
	sink.PrintLine(fmt.Sprintf("  Total allocations: %d", a.allocationCount))

	sink.PrintLine("")
	sink.PrintLine("  Free blocks by order:")
	for order := uint8(0); order <= MaxOrder; order++ {
		count := 0
		for idx := a.freeLists[order]; idx != noBlock; idx = a.blocks[idx].next {
			count++
		}
		if count > 0 {
			sink.PrintLine(fmt.Sprintf("    Order %d (%d pages): %d blocks", order, uint32(1)<<order, count))
		}
	}
}
