// Package sched implements the two process schedulers named in spec
// section 4.3/4.4: round-robin and multi-level priority with aging, both
// satisfying the Scheduler capability interface bound to the registry's
// "scheduler" role.
package sched

import "github.com/import1bones/MTOS/kernel"

// Scheduler is the capability interface spec section 6 names for the
// scheduler role.
type Scheduler interface {
	Name() string

	Init() error
	Shutdown()

	AddProcess(p *kernel.Process)
	RemoveProcess(p *kernel.Process)

	GetNext() *kernel.Process
	Schedule()
	Yield()

	Block(p *kernel.Process)
	Unblock(p *kernel.Process)

	TimerTick()

	GetTimeSlice(p *kernel.Process) uint32
	SetPriority(p *kernel.Process, priority uint8) error
	GetPriority(p *kernel.Process) int

	PrintStats(sink kernel.Sink)
	GetContextSwitches() uint32
	GetAvgWaitTime() uint32
}
