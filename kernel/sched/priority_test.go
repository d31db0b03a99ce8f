package sched

import (
	"testing"

	"github.com/import1bones/MTOS/kernel"
	"github.com/stretchr/testify/require"
)

func TestPriorityScheduler_DominanceAndFIFO(t *testing.T) {
	s := NewPriorityScheduler(nil)
	low := &kernel.Process{ID: 1, Priority: 5}
	high := &kernel.Process{ID: 2, Priority: 20}
	s.AddProcess(low)
	s.AddProcess(high)

	next := s.GetNext()
	require.Equal(t, high, next, "get_next must return the highest non-empty priority")
}

// TestPriorityScheduler_S4Aging reproduces spec scenario S4: P_low at
// priority 5 sits ready while P_high (priority 20) is perpetually
// current; after (20-5)*AgingInterval = 1500 ticks, P_low must have
// reached priority 20, and its age is reset to 0 by the promotion.
func TestPriorityScheduler_S4Aging(t *testing.T) {
	s := NewPriorityScheduler(nil)
	low := &kernel.Process{ID: 1, Priority: 5}
	high := &kernel.Process{ID: 2, Priority: 20}
	s.AddProcess(low)
	s.AddProcess(high)

	// Dispatch P_high so it occupies "current" and P_low stays ready.
	s.Schedule()
	require.Equal(t, high, s.current)

	for tick := 0; tick < 1500; tick++ {
		s.TimerTick()
	}

	require.GreaterOrEqual(t, low.Priority, uint8(20))
	require.Equal(t, uint32(0), low.Age)
}

func TestPriorityScheduler_UnblockRestoresOriginalPriority(t *testing.T) {
	s := NewPriorityScheduler(nil)
	p := &kernel.Process{ID: 1, Priority: 10}
	s.AddProcess(p)

	s.Block(p)
	require.True(t, p.Blocked)

	p.Priority = 31 // simulate aging credit accrued before block
	s.Unblock(p)

	require.Equal(t, uint8(10), p.Priority, "unblock must restore original_priority, discarding aging gains")
	require.Equal(t, uint32(0), p.Age)
}

func TestPriorityScheduler_SetPriorityRequeues(t *testing.T) {
	s := NewPriorityScheduler(nil)
	p := &kernel.Process{ID: 1, Priority: 5}
	s.AddProcess(p)

	require.NoError(t, s.SetPriority(p, 25))
	require.Equal(t, uint8(25), p.Priority)
	require.Equal(t, uint8(25), p.OriginalPriority)
	require.Equal(t, uint32(60), p.TimeSlice) // 10 + 2*25

	node, ok := s.nodeByID[p.ID]
	require.True(t, ok)
	require.Equal(t, uint32(1), s.readyQueues[25].count)
	require.Same(t, p, node.proc)
}

func TestPriorityScheduler_SetPriorityOutOfRangeFails(t *testing.T) {
	s := NewPriorityScheduler(nil)
	p := &kernel.Process{ID: 1, Priority: 5}
	s.AddProcess(p)

	err := s.SetPriority(p, 32)
	require.ErrorIs(t, err, kernel.ErrInvalidArgument)
	require.Equal(t, uint8(5), p.Priority)
}

func TestPriorityScheduler_RemoveProcessClearsCurrent(t *testing.T) {
	s := NewPriorityScheduler(nil)
	p := &kernel.Process{ID: 1, Priority: 10}
	s.AddProcess(p)
	s.Schedule()
	require.Equal(t, p, s.current)

	p.Running = true
	s.RemoveProcess(p)
	require.Nil(t, s.current)
}
