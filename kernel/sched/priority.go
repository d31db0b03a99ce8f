package sched

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"

	"github.com/import1bones/MTOS/kernel/klog"
)

// MaxPriority and DefaultPriority bound and default spec 4.4's priority
// range [0, 31].
const (
	MaxPriority     = 31
	DefaultPriority = 15
	AgingInterval   = 100
	AgingBoost      = 1
)

// priorityNode wraps a borrowed process descriptor with the queue links the
// priority scheduler needs, mirroring rrNode's split of ownership.
type priorityNode struct {
	proc       *kernel.Process
	next, prev *priorityNode
}

type priorityQueue struct {
	head, tail *priorityNode
	count      uint32
}

func (q *priorityQueue) enqueue(node *priorityNode) {
	node.next = nil
	node.prev = q.tail
	if q.tail != nil {
		q.tail.next = node
	} else {
		q.head = node
	}
	q.tail = node
	q.count++
}

func (q *priorityQueue) dequeue() *priorityNode {
	node := q.head
	if node == nil {
		return nil
	}
	q.head = node.next
	if q.head != nil {
		q.head.prev = nil
	} else {
		q.tail = nil
	}
	node.next, node.prev = nil, nil
	q.count--
	return node
}

func (q *priorityQueue) unlink(node *priorityNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		q.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		q.tail = node.prev
	}
	node.next, node.prev = nil, nil
	q.count--
}

// PriorityScheduler implements spec 4.4: 32 ready queues with aging
// promotion and a dynamic per-priority time slice.
type PriorityScheduler struct {
	readyQueues [MaxPriority + 1]priorityQueue
	nodeByID    map[uint32]*priorityNode // tracks which ready queue a process is in
	blockedByID map[uint32]*kernel.Process

	current         *kernel.Process
	totalProcesses  uint32
	contextSwitches uint32
	totalWaitTime   uint32
	currentTick     uint32
	timeSlice       func(priority uint8) uint32
}

var _ Scheduler = (*PriorityScheduler)(nil)

// NewPriorityScheduler constructs a priority scheduler. timeSlice computes
// the dynamic slice for a priority level; pass nil to use spec 4.4's
// default formula (10 + 2*priority).
func NewPriorityScheduler(timeSlice func(priority uint8) uint32) *PriorityScheduler {
	if timeSlice == nil {
		timeSlice = func(priority uint8) uint32 { return 10 + 2*uint32(priority) }
	}
	return &PriorityScheduler{
		nodeByID:    make(map[uint32]*priorityNode),
		blockedByID: make(map[uint32]*kernel.Process),
		timeSlice:   timeSlice,
	}
}

// Name implements Scheduler.
func (s *PriorityScheduler) Name() string { return "priority" }

// Init implements Scheduler.
func (s *PriorityScheduler) Init() error { return nil }

// Shutdown implements Scheduler.
func (s *PriorityScheduler) Shutdown() {
	for i := range s.readyQueues {
		s.readyQueues[i] = priorityQueue{}
	}
	s.nodeByID = make(map[uint32]*priorityNode)
	s.blockedByID = make(map[uint32]*kernel.Process)
	s.current = nil
	s.totalProcesses = 0
}

// AddProcess implements Scheduler, mirroring priority_add_process: an
// out-of-range priority is clamped to the default rather than rejected.
func (s *PriorityScheduler) AddProcess(p *kernel.Process) {
	if p == nil {
		return
	}
	if p.Priority > MaxPriority {
		p.Priority = DefaultPriority
	}
	p.OriginalPriority = p.Priority
	p.Age = 0
	p.TimeSlice = s.timeSlice(p.Priority)
	p.RemainingSlice = p.TimeSlice
	p.Running = false
	p.Blocked = false

	node := &priorityNode{proc: p}
	s.readyQueues[p.Priority].enqueue(node)
	s.nodeByID[p.ID] = node
	s.totalProcesses++
}

// RemoveProcess implements Scheduler.
func (s *PriorityScheduler) RemoveProcess(p *kernel.Process) {
	if p == nil {
		return
	}
	if !p.Blocked && !p.Running {
		if node, ok := s.nodeByID[p.ID]; ok {
			s.readyQueues[p.Priority].unlink(node)
			delete(s.nodeByID, p.ID)
		}
	}
	if p.Blocked {
		delete(s.blockedByID, p.ID)
	}
	if s.current == p {
		s.current = nil
	}
	s.totalProcesses--
}

func (s *PriorityScheduler) findHighestPriority() (uint8, bool) {
	for priority := MaxPriority; priority >= 0; priority-- {
		if s.readyQueues[priority].count > 0 {
			return uint8(priority), true
		}
	}
	return 0, false
}

// GetNext implements Scheduler.
func (s *PriorityScheduler) GetNext() *kernel.Process {
	priority, ok := s.findHighestPriority()
	if !ok {
		return nil
	}
	node := s.readyQueues[priority].dequeue()
	if node == nil {
		return nil
	}
	delete(s.nodeByID, node.proc.ID)
	return node.proc
}

// Schedule implements Scheduler. The outgoing process is re-enqueued
// before GetNext() runs, not after: the original source calls get_next()
// first and only re-queues the outgoing process afterward, which means a
// quantum expiry always hands the CPU to whatever is sitting in the ready
// queues even when the outgoing process is itself still the highest
// priority one — that breaks both invariant 6 (priority dominance) and
// scenario S4 (a perpetually-ready high-priority process would get
// displaced by a lower-priority one on every one of its own quantum
// expiries instead of aging genuinely starving the lower one).
// Re-queuing first lets the outgoing process win again immediately when it
// is still the correct choice.
func (s *PriorityScheduler) Schedule() {
	prevCurrent := s.current

	if s.current != nil {
		s.current.Running = false
		if !s.current.Blocked {
			node := &priorityNode{proc: s.current}
			s.readyQueues[s.current.Priority].enqueue(node)
			s.nodeByID[s.current.ID] = node
		}
	}

	next := s.GetNext()
	s.current = next
	if next != nil {
		next.Running = true
		next.RemainingSlice = next.TimeSlice
		next.Age = 0
	}

	if next != prevCurrent {
		s.contextSwitches++
	}
}

// Yield implements Scheduler.
func (s *PriorityScheduler) Yield() {
	if s.current != nil {
		s.current.RemainingSlice = 0
	}
	s.Schedule()
}

// Block implements Scheduler.
func (s *PriorityScheduler) Block(p *kernel.Process) {
	if p == nil {
		return
	}
	p.Blocked = true
	if p == s.current {
		s.current = nil
		s.Schedule()
	} else if node, ok := s.nodeByID[p.ID]; ok {
		s.readyQueues[p.Priority].unlink(node)
		delete(s.nodeByID, p.ID)
	}
	s.blockedByID[p.ID] = p
}

// Unblock implements Scheduler, restoring the descriptor's original
// priority: aging gains never persist across a block (spec 4.4).
func (s *PriorityScheduler) Unblock(p *kernel.Process) {
	if p == nil || !p.Blocked {
		return
	}
	if _, ok := s.blockedByID[p.ID]; !ok {
		return
	}
	delete(s.blockedByID, p.ID)

	p.Blocked = false
	p.Priority = p.OriginalPriority
	p.Age = 0

	node := &priorityNode{proc: p}
	s.readyQueues[p.Priority].enqueue(node)
	s.nodeByID[p.ID] = node
}

// tickAge increments Age for every ready process below MaxPriority. The
// original source only incremented age inside the periodic aging pass
// itself (once per AgingInterval ticks) while comparing that same counter
// against AgingInterval — a process would need AgingInterval separate
// passes, i.e. AgingInterval^2 ticks, to ever be promoted. That contradicts
// spec.md's own invariant 7 and scenario S4, both of which require a
// promotion within AgingInterval ticks of continuous waiting. Ticking Age
// once per timer tick here, and only gating the promotion *check* to every
// AgingInterval ticks in ageProcesses, is what makes both hold.
func (s *PriorityScheduler) tickAge() {
	for priority := 0; priority < MaxPriority; priority++ {
		for node := s.readyQueues[priority].head; node != nil; node = node.next {
			node.proc.Age++
		}
	}
}

// ageProcesses promotes every ready process whose age has reached
// AgingInterval, per spec 4.4's anti-starvation pass.
func (s *PriorityScheduler) ageProcesses() {
	for priority := 0; priority < MaxPriority; priority++ {
		queue := &s.readyQueues[priority]
		node := queue.head
		for node != nil {
			next := node.next

			if node.proc.Age >= AgingInterval {
				queue.unlink(node)
				delete(s.nodeByID, node.proc.ID)

				newPriority := priority + AgingBoost
				if newPriority > MaxPriority {
					newPriority = MaxPriority
				}
				node.proc.Priority = uint8(newPriority)
				node.proc.Age = 0

				s.readyQueues[newPriority].enqueue(node)
				s.nodeByID[node.proc.ID] = node
				klog.Debugf("priority scheduler aged process %d to priority %d", node.proc.ID, newPriority)
			}
			node = next
		}
	}
}

// TimerTick implements Scheduler.
func (s *PriorityScheduler) TimerTick() {
	s.currentTick++

	if s.current != nil {
		if s.current.RemainingSlice > 0 {
			s.current.RemainingSlice--
		}
		if s.current.RemainingSlice == 0 {
			s.Schedule()
		}
	}

	s.tickAge()
	if s.currentTick%AgingInterval == 0 {
		s.ageProcesses()
	}

	for priority := 0; priority <= MaxPriority; priority++ {
		s.totalWaitTime += s.readyQueues[priority].count
	}
}

// GetTimeSlice implements Scheduler.
func (s *PriorityScheduler) GetTimeSlice(p *kernel.Process) uint32 {
	if p == nil {
		return 0
	}
	return p.TimeSlice
}

// SetPriority implements Scheduler.
func (s *PriorityScheduler) SetPriority(p *kernel.Process, priority uint8) error {
	if p == nil || priority > MaxPriority {
		return kernel.ErrInvalidArgument
	}

	if !p.Running && !p.Blocked {
		if node, ok := s.nodeByID[p.ID]; ok {
			s.readyQueues[p.Priority].unlink(node)
			delete(s.nodeByID, p.ID)
		}
		p.Priority = priority
		p.OriginalPriority = priority
		p.TimeSlice = s.timeSlice(priority)

		node := &priorityNode{proc: p}
		s.readyQueues[p.Priority].enqueue(node)
		s.nodeByID[p.ID] = node
	} else {
		p.Priority = priority
		p.OriginalPriority = priority
		p.TimeSlice = s.timeSlice(priority)
	}
	return nil
}

// GetPriority implements Scheduler.
func (s *PriorityScheduler) GetPriority(p *kernel.Process) int {
	if p == nil {
		return -1
	}
	return int(p.Priority)
}

// GetContextSwitches implements Scheduler.
func (s *PriorityScheduler) GetContextSwitches() uint32 { return s.contextSwitches }

// GetAvgWaitTime implements Scheduler.
func (s *PriorityScheduler) GetAvgWaitTime() uint32 {
	if s.currentTick == 0 {
		return 0
	}
	return s.totalWaitTime / s.currentTick
}

// PrintStats implements Scheduler.
func (s *PriorityScheduler) PrintStats(sink kernel.Sink) {
	sink.PrintLine("PRIORITY SCHEDULER STATISTICS:")
	sink.PrintLine(fmt.Sprintf("  Total processes: %d", s.totalProcesses))
	sink.PrintLine(fmt.Sprintf("  Context switches: %d", s.contextSwitches))
	sink.PrintLine(fmt.Sprintf("  Current tick: %d", s.currentTick))
	if s.currentTick > 0 {
		sink.PrintLine(fmt.Sprintf("  Average wait time: %.2f ticks", float64(s.totalWaitTime)/float64(s.currentTick)))
	}

	sink.PrintLine("")
	sink.PrintLine("  Ready processes by priority:")
	for priority := MaxPriority; priority >= 0; priority-- {
		if s.readyQueues[priority].count > 0 {
			sink.PrintLine(fmt.Sprintf("    Priority %d: %d processes", priority, s.readyQueues[priority].count))
		}
	}

	if s.current != nil {
		sink.PrintLine("")
		sink.PrintLine(fmt.Sprintf("  Current process: PID %d, Priority %d, Remaining slice: %d",
			s.current.ID, s.current.Priority, s.current.RemainingSlice))
	}
}
