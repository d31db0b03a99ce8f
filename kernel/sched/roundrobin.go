package sched

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"
)

// DefaultTimeQuantum is spec 4.3's default fixed quantum, used when a
// caller has no config-supplied override.
const DefaultTimeQuantum = 20

// rrNode is the scheduler-owned queue-link wrapper around a borrowed
// process descriptor (spec section 9: descriptors carry no link fields of
// their own).
type rrNode struct {
	proc       *kernel.Process
	next, prev *rrNode
	waitTime   uint32
}

// RoundRobinScheduler implements spec 4.3: one FIFO ready queue, a
// separate blocked set, and a fixed quantum shared by every process.
type RoundRobinScheduler struct {
	readyHead, readyTail *rrNode
	readyByID            map[uint32]*rrNode
	blockedByID          map[uint32]*rrNode

	current          *kernel.Process
	timeQuantum      uint32
	remainingQuantum uint32

	processCount    uint32
	contextSwitches uint32
	totalWaitTime   uint32
	currentTick     uint32
}

var _ Scheduler = (*RoundRobinScheduler)(nil)

// NewRoundRobinScheduler constructs a scheduler with the given fixed
// quantum (spec default 20), clamped to [1, 1000].
func NewRoundRobinScheduler(timeQuantum uint32) *RoundRobinScheduler {
	if timeQuantum < 1 {
		timeQuantum = 1
	} else if timeQuantum > 1000 {
		timeQuantum = 1000
	}
	return &RoundRobinScheduler{
		timeQuantum: timeQuantum,
		readyByID:   make(map[uint32]*rrNode),
		blockedByID: make(map[uint32]*rrNode),
	}
}

// Name implements Scheduler.
func (s *RoundRobinScheduler) Name() string { return "round_robin" }

// Init implements Scheduler. Round-robin carries no state that needs
// deferred setup beyond construction, so Init always succeeds.
func (s *RoundRobinScheduler) Init() error { return nil }

// Shutdown implements Scheduler.
func (s *RoundRobinScheduler) Shutdown() {
	s.readyHead, s.readyTail = nil, nil
	s.readyByID = make(map[uint32]*rrNode)
	s.blockedByID = make(map[uint32]*rrNode)
	s.current = nil
	s.processCount = 0
}

func (s *RoundRobinScheduler) enqueueReady(node *rrNode) {
	node.next = nil
	node.prev = s.readyTail
	if s.readyTail != nil {
		s.readyTail.next = node
	} else {
		s.readyHead = node
	}
	s.readyTail = node
	s.readyByID[node.proc.ID] = node
}

func (s *RoundRobinScheduler) dequeueReady() *rrNode {
	node := s.readyHead
	if node == nil {
		return nil
	}
	s.readyHead = node.next
	if s.readyHead != nil {
		s.readyHead.prev = nil
	} else {
		s.readyTail = nil
	}
	node.next, node.prev = nil, nil
	delete(s.readyByID, node.proc.ID)
	return node
}

func (s *RoundRobinScheduler) unlinkReady(node *rrNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		s.readyHead = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		s.readyTail = node.prev
	}
	node.next, node.prev = nil, nil
	delete(s.readyByID, node.proc.ID)
}

// AddProcess implements Scheduler.
func (s *RoundRobinScheduler) AddProcess(p *kernel.Process) {
	if p == nil {
		return
	}
	s.enqueueReady(&rrNode{proc: p})
	s.processCount++
}

// RemoveProcess implements Scheduler, fixing the source bug spec.md's Open
// Questions flags: the original only cleared `current` without detaching
// the descriptor otherwise; this unconditionally unlinks from whichever
// set holds it.
func (s *RoundRobinScheduler) RemoveProcess(p *kernel.Process) {
	if p == nil {
		return
	}
	if s.current == p {
		s.current = nil
		s.remainingQuantum = 0
		s.processCount--
		return
	}
	if node, ok := s.readyByID[p.ID]; ok {
		s.unlinkReady(node)
		s.processCount--
		return
	}
	if _, ok := s.blockedByID[p.ID]; ok {
		delete(s.blockedByID, p.ID)
		s.processCount--
	}
}

// GetNext implements Scheduler.
func (s *RoundRobinScheduler) GetNext() *kernel.Process {
	node := s.dequeueReady()
	if node == nil {
		return nil
	}
	return node.proc
}

// Schedule implements Scheduler.
func (s *RoundRobinScheduler) Schedule() {
	if s.current == nil || s.remainingQuantum == 0 {
		if s.current != nil && s.remainingQuantum == 0 {
			s.enqueueReady(&rrNode{proc: s.current})
		}

		next := s.GetNext()
		if next != s.current {
			s.current = next
			s.remainingQuantum = s.timeQuantum
			s.contextSwitches++
		}
	}
}

// Yield implements Scheduler.
func (s *RoundRobinScheduler) Yield() {
	if s.current != nil {
		s.enqueueReady(&rrNode{proc: s.current})
		s.current = nil
		s.remainingQuantum = 0
	}
	s.Schedule()
}

// Block implements Scheduler.
func (s *RoundRobinScheduler) Block(p *kernel.Process) {
	if p == nil {
		return
	}
	p.Blocked = true
	if p == s.current {
		s.blockedByID[p.ID] = &rrNode{proc: p}
		s.current = nil
		s.remainingQuantum = 0
		s.Schedule()
		return
	}
	if node, ok := s.readyByID[p.ID]; ok {
		s.unlinkReady(node)
		s.blockedByID[p.ID] = node
	}
}

// Unblock implements Scheduler.
func (s *RoundRobinScheduler) Unblock(p *kernel.Process) {
	if p == nil {
		return
	}
	node, ok := s.blockedByID[p.ID]
	if !ok {
		return
	}
	delete(s.blockedByID, p.ID)
	p.Blocked = false
	node.waitTime = 0
	s.enqueueReady(node)
}

// TimerTick implements Scheduler.
func (s *RoundRobinScheduler) TimerTick() {
	s.currentTick++

	if s.current != nil && s.remainingQuantum > 0 {
		s.remainingQuantum--
	}

	for node := s.readyHead; node != nil; node = node.next {
		node.waitTime++
		s.totalWaitTime++
	}

	if s.remainingQuantum == 0 {
		s.Schedule()
	}
}

// GetTimeSlice implements Scheduler: every process shares the fixed quantum.
func (s *RoundRobinScheduler) GetTimeSlice(*kernel.Process) uint32 { return s.timeQuantum }

// SetPriority implements Scheduler. Round-robin accepts but ignores
// priority, per spec 4.3's "priority hooks are accepted but inert".
func (s *RoundRobinScheduler) SetPriority(*kernel.Process, uint8) error { return nil }

// GetPriority implements Scheduler: round-robin treats every process
// equally.
func (s *RoundRobinScheduler) GetPriority(*kernel.Process) int { return 0 }

// GetContextSwitches implements Scheduler.
func (s *RoundRobinScheduler) GetContextSwitches() uint32 { return s.contextSwitches }

// GetAvgWaitTime implements Scheduler.
func (s *RoundRobinScheduler) GetAvgWaitTime() uint32 {
	if s.currentTick == 0 {
		return 0
	}
	return s.totalWaitTime / s.currentTick
}

// PrintStats implements Scheduler.
func (s *RoundRobinScheduler) PrintStats(sink kernel.Sink) {
	readyCount := uint32(0)
	for node := s.readyHead; node != nil; node = node.next {
		readyCount++
	}

	sink.PrintLine("ROUND-ROBIN SCHEDULER STATISTICS:")
	sink.PrintLine(fmt.Sprintf("  Total processes: %d", s.processCount))
	sink.PrintLine(fmt.Sprintf("  Context switches: %d", s.contextSwitches))
	sink.PrintLine(fmt.Sprintf("  Time quantum: %d ticks", s.timeQuantum))
	sink.PrintLine(fmt.Sprintf("  Current tick: %d", s.currentTick))
	if s.currentTick > 0 {
		sink.PrintLine(fmt.Sprintf("  Average wait time: %.2f ticks", float64(s.totalWaitTime)/float64(s.currentTick)))
	}
	sink.PrintLine(fmt.Sprintf("  Ready processes: %d", readyCount))
	sink.PrintLine(fmt.Sprintf("  Blocked processes: %d", len(s.blockedByID)))
	if s.current != nil {
		sink.PrintLine(fmt.Sprintf("  Current process: Running, Remaining quantum: %d", s.remainingQuantum))
	} else {
		sink.PrintLine("  Current process: None")
	}
}
