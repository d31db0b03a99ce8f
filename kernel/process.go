package kernel

// Process is a process descriptor, owned and allocated by the host and
// only ever borrowed by a Scheduler implementation (spec section 9 design
// notes: "Never place ownership of descriptors inside the scheduler — the
// host owns lifetime"). Scheduler implementations wrap a *Process in their
// own queue-link node type rather than threading link fields through it.
type Process struct {
	ID uint32

	// Priority and OriginalPriority are meaningful only to the priority
	// scheduler; the round-robin scheduler accepts but ignores them.
	Priority         uint8
	OriginalPriority uint8

	// Age counts ticks since this process was last scheduled or had its
	// priority reset; used by the priority scheduler's aging pass.
	Age uint32

	TimeSlice      uint32
	RemainingSlice uint32

	Running bool
	Blocked bool
}
