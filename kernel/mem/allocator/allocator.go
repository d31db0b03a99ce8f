// Package allocator implements the two physical page allocators named in
// spec section 4: a bitmap allocator and a binary buddy allocator, both
// satisfying the same PhysicalAllocator capability interface so the
// registry can swap between them without the caller noticing.
package allocator

import "github.com/import1bones/MTOS/kernel"

// PageSize is the fixed unit of physical memory every allocator manages.
const PageSize = 4096

// PhysicalAllocator is the capability interface bound to the registry's
// "physical_allocator" role (spec section 4.1/4.2).
type PhysicalAllocator interface {
	// Name identifies the installed variant, e.g. "bitmap" or "buddy".
	Name() string

	// Init partitions the half-open region [start, end) into pages,
	// reserving whatever metadata the variant needs at the low end.
	Init(start, end kernel.Address) error

	// AllocPage returns the address of a single free page.
	AllocPage() (kernel.Address, error)

	// AllocPages returns the address of a run of n contiguous free pages.
	AllocPages(n uint32) (kernel.Address, error)

	// AllocAligned returns the address of a free region of at least size
	// bytes whose start satisfies alignment, per spec 4.1/4.2's differing
	// strategies for the two variants.
	AllocAligned(size, alignment kernel.Size) (kernel.Address, error)

	// FreePage releases a single page. A no-op on an invalid or already
	// free address.
	FreePage(addr kernel.Address)

	// FreePages releases n pages starting at addr.
	FreePages(addr kernel.Address, n uint32)

	// IsAvailable reports whether the page containing addr is free.
	IsAvailable(addr kernel.Address) bool

	// GetFreePages and GetTotalPages report the observational counters
	// spec 4.1/4.2 require.
	GetFreePages() uint32
	GetTotalPages() uint32

	// PrintStats writes a human-readable summary through sink.
	PrintStats(sink kernel.Sink)
}
