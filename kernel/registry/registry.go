// Package registry implements spec section 4.7 and the REDESIGN FLAGS
// instruction to replace the original's function-pointer table plus
// `extern` global with instance-held Go interfaces: a Registry is a value
// a caller constructs and owns, not a package-level singleton.
package registry

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"
	"github.com/import1bones/MTOS/kernel/ipc"
	"github.com/import1bones/MTOS/kernel/klog"
	"github.com/import1bones/MTOS/kernel/mem/allocator"
	"github.com/import1bones/MTOS/kernel/sched"
)

// Registry holds the capability currently bound to each named role. Every
// field is an interface; a nil field means that role is unbound.
type Registry struct {
	PhysicalAllocator allocator.PhysicalAllocator
	Scheduler         sched.Scheduler
	IPCTransport      ipc.Transport

	// Reserved roles named by spec 4.7 and the original's struct but with
	// no implementation in this module's scope (no virtual memory, heap
	// allocator, process loader, or device driver subsystem exists here).
	// They're kept as typed nil-able slots so Print has a complete, literal
	// mapping of every role the original registry named; Switch knows no
	// variants for them and returns kernel.ErrNotFound.
	VirtualMemory interface{ Name() string }
	HeapAllocator interface{ Name() string }
	ProcessLoader interface{ Name() string }
	DeviceDriver  interface{ Name() string }
}

// New returns an empty Registry with every role unbound.
func New() *Registry {
	return &Registry{}
}

// RegisterPhysicalAllocator implements spec 4.7. A nil capability set is
// rejected and the previous binding, if any, is left intact.
func (r *Registry) RegisterPhysicalAllocator(a allocator.PhysicalAllocator) error {
	if a == nil {
		return kernel.ErrPreconditionViolated
	}
	r.PhysicalAllocator = a
	return nil
}

// RegisterScheduler implements spec 4.7.
func (r *Registry) RegisterScheduler(s sched.Scheduler) error {
	if s == nil {
		return kernel.ErrPreconditionViolated
	}
	r.Scheduler = s
	return nil
}

// RegisterIPCTransport implements spec 4.7.
func (r *Registry) RegisterIPCTransport(t ipc.Transport) error {
	if t == nil {
		return kernel.ErrPreconditionViolated
	}
	r.IPCTransport = t
	return nil
}

// builtinAllocator maps a variant name to a fresh instance of the
// corresponding allocator, sized against the region [start, end).
func builtinAllocator(name string, start, end kernel.Address) (allocator.PhysicalAllocator, error) {
	switch name {
	case "bitmap":
		a := &allocator.BitmapAllocator{}
		if err := a.Init(start, end); err != nil {
			return nil, err
		}
		return a, nil
	case "buddy":
		a := &allocator.BuddyAllocator{}
		if err := a.Init(start, end); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, kernel.ErrNotFound
	}
}

func builtinScheduler(name string) (sched.Scheduler, error) {
	switch name {
	case "round_robin":
		return sched.NewRoundRobinScheduler(sched.DefaultTimeQuantum), nil
	case "priority":
		return sched.NewPriorityScheduler(nil), nil
	default:
		return nil, kernel.ErrNotFound
	}
}

func builtinTransport(name string) (ipc.Transport, error) {
	switch name {
	case "message_queue":
		t := ipc.NewMessageQueueTransport(ipc.DefaultMaxChannels, ipc.DefaultMaxQueueDepth)
		if err := t.Init(); err != nil {
			return nil, err
		}
		return t, nil
	case "shared_memory":
		t := ipc.NewSharedMemoryTransport(ipc.MaxRegions)
		if err := t.Init(); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, kernel.ErrNotFound
	}
}

// Switch implements spec 4.7's component switching: it constructs the
// named variant for the named role and swaps it in only on success,
// leaving both the current binding and the requested variant's state
// untouched on failure. allocatorRegion is only consulted for role
// "physical_allocator"; pass a zero range for other roles.
func (r *Registry) Switch(role, name string, allocatorRegion [2]kernel.Address) error {
	switch role {
	case "physical_allocator":
		a, err := builtinAllocator(name, allocatorRegion[0], allocatorRegion[1])
		if err != nil {
			return err
		}
		r.PhysicalAllocator = a
	case "scheduler":
		s, err := builtinScheduler(name)
		if err != nil {
			return err
		}
		r.Scheduler = s
	case "ipc_transport":
		t, err := builtinTransport(name)
		if err != nil {
			return err
		}
		r.IPCTransport = t
	default:
		return kernel.ErrNotFound
	}
	klog.Infof("registry: switched %s to %s", role, name)
	return nil
}

// InstallDefaults implements spec 4.7's default wiring: bitmap allocator,
// round-robin scheduler, message-queue transport, mirroring
// init_kernel_registry's literal three-call sequence.
func (r *Registry) InstallDefaults(start, end kernel.Address) error {
	a, err := builtinAllocator("bitmap", start, end)
	if err != nil {
		return err
	}
	if err := r.RegisterPhysicalAllocator(a); err != nil {
		return err
	}

	s, err := builtinScheduler("round_robin")
	if err != nil {
		return err
	}
	if err := r.RegisterScheduler(s); err != nil {
		return err
	}

	t, err := builtinTransport("message_queue")
	if err != nil {
		return err
	}
	return r.RegisterIPCTransport(t)
}

// Print implements spec 4.7's print_registered_components: it enumerates
// every bound role, skipping unbound ones.
func (r *Registry) Print(sink kernel.Sink) {
	sink.PrintLine("MTOS REGISTERED COMPONENTS:")

	if r.PhysicalAllocator != nil {
		sink.PrintLine(fmt.Sprintf("  Physical Allocator: %s", r.PhysicalAllocator.Name()))
	}
	if r.Scheduler != nil {
		sink.PrintLine(fmt.Sprintf("  Scheduler: %s", r.Scheduler.Name()))
	}
	if r.IPCTransport != nil {
		sink.PrintLine(fmt.Sprintf("  IPC Transport: %s", r.IPCTransport.Name()))
	}
	if r.VirtualMemory != nil {
		sink.PrintLine(fmt.Sprintf("  Virtual Memory: %s", r.VirtualMemory.Name()))
	}
	if r.HeapAllocator != nil {
		sink.PrintLine(fmt.Sprintf("  Heap Allocator: %s", r.HeapAllocator.Name()))
	}
	if r.ProcessLoader != nil {
		sink.PrintLine(fmt.Sprintf("  Process Loader: %s", r.ProcessLoader.Name()))
	}
	if r.DeviceDriver != nil {
		sink.PrintLine(fmt.Sprintf("  Device Driver: %s", r.DeviceDriver.Name()))
	}
}
