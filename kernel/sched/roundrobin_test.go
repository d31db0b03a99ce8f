package sched

import (
	"testing"

	"github.com/import1bones/MTOS/kernel"
	"github.com/stretchr/testify/require"
)

// TestRoundRobinScheduler_S3Fairness reproduces spec scenario S3's setup:
// quantum 5; add P1, P2, P3; tick 15 times and record every dispatch. With
// a 5-tick quantum, 15 ticks crosses exactly 3 quantum boundaries (at
// ticks 5, 10, 15), so the initial dispatch plus those three switches
// cycles P1 -> P2 -> P3 -> P1, for 4 total context switches.
func TestRoundRobinScheduler_S3Fairness(t *testing.T) {
	s := NewRoundRobinScheduler(5)
	p1 := &kernel.Process{ID: 1}
	p2 := &kernel.Process{ID: 2}
	p3 := &kernel.Process{ID: 3}
	s.AddProcess(p1)
	s.AddProcess(p2)
	s.AddProcess(p3)

	s.Schedule() // initial dispatch: P1
	require.Equal(t, p1, s.current)

	var dispatchOrder []uint32
	dispatchOrder = append(dispatchOrder, s.current.ID)

	for tick := 0; tick < 15; tick++ {
		prev := s.current
		s.TimerTick()
		if s.current != prev {
			dispatchOrder = append(dispatchOrder, s.current.ID)
		}
	}

	require.Equal(t, []uint32{1, 2, 3, 1}, dispatchOrder)
	require.Equal(t, uint32(4), s.GetContextSwitches())
}

func TestRoundRobinScheduler_RemoveRunningProcessIsUnconditional(t *testing.T) {
	s := NewRoundRobinScheduler(5)
	p1 := &kernel.Process{ID: 1}
	s.AddProcess(p1)
	s.Schedule()
	require.Equal(t, p1, s.current)

	s.RemoveProcess(p1)
	require.Nil(t, s.current)
	require.Equal(t, uint32(0), s.processCount)
}

func TestRoundRobinScheduler_BlockAndUnblock(t *testing.T) {
	s := NewRoundRobinScheduler(5)
	p1 := &kernel.Process{ID: 1}
	p2 := &kernel.Process{ID: 2}
	s.AddProcess(p1)
	s.AddProcess(p2)
	s.Schedule()
	require.Equal(t, p1, s.current)

	s.Block(p1)
	require.True(t, p1.Blocked)
	require.Equal(t, p2, s.current)

	s.Unblock(p1)
	require.False(t, p1.Blocked)
	require.Contains(t, s.readyByID, p1.ID)
}

func TestRoundRobinScheduler_YieldReschedules(t *testing.T) {
	s := NewRoundRobinScheduler(5)
	p1 := &kernel.Process{ID: 1}
	p2 := &kernel.Process{ID: 2}
	s.AddProcess(p1)
	s.AddProcess(p2)
	s.Schedule()
	require.Equal(t, p1, s.current)

	s.Yield()
	require.Equal(t, p2, s.current)
}
