package kernel

// Address is a physical byte address, always a multiple of PageSize within
// an allocator's managed region.
type Address uint32

// Frame is a page index relative to the start of an allocator's managed
// region: Frame 0 is the first page at the region's start address.
type Frame uint32

// Size is a byte count, most often a page or block size.
type Size uint32
