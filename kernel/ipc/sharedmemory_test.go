package ipc

import (
	"testing"

	"github.com/import1bones/MTOS/kernel"
	"github.com/stretchr/testify/require"
)

func newTestSharedMemory(t *testing.T) *SharedMemoryTransport {
	t.Helper()
	tr := NewSharedMemoryTransport(MaxRegions)
	require.NoError(t, tr.Init())
	return tr
}

// TestSharedMemoryTransport_S6Handoff reproduces spec scenario S6: a second
// send fails while the slot is occupied, and sent == received + has_data
// holds at every observation point.
func TestSharedMemoryTransport_S6Handoff(t *testing.T) {
	tr := newTestSharedMemory(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)

	require.NoError(t, tr.SendMessage(id, msgFrom(1, 2, 1)))
	require.True(t, tr.HasMessages(id))

	err = tr.SendMessage(id, msgFrom(1, 2, 2))
	require.Error(t, err, "the slot is occupied until the receiver drains it")

	region := tr.findRegion(id)
	require.Equal(t, region.sentCount, region.receivedCount+boolToUint32(region.hasData))

	msg, err := tr.ReceiveMessage(id)
	require.NoError(t, err)
	require.Equal(t, byte(1), msg.Data[0])
	require.False(t, tr.HasMessages(id))
	require.Equal(t, region.sentCount, region.receivedCount+boolToUint32(region.hasData))

	require.NoError(t, tr.SendMessage(id, msgFrom(1, 2, 2)), "slot is free again after drain")
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func TestSharedMemoryTransport_SendRequiresWriteRight(t *testing.T) {
	tr := newTestSharedMemory(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)

	err = tr.SendMessage(id, msgFrom(2, 1, 0))
	require.ErrorIs(t, err, kernel.ErrPolicyDenied, "receiver 2 only has read rights by default")
}

func TestSharedMemoryTransport_GrantCapabilityAddsParticipant(t *testing.T) {
	tr := newTestSharedMemory(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)

	tr.GrantCapability(1, 3, RightRead|RightWrite)
	require.NoError(t, tr.SendMessage(id, msgFrom(3, 1, 9)), "grant must add participant 3 with write rights")
}

func TestSharedMemoryTransport_CheckPermissionIsAnUnconditionalStub(t *testing.T) {
	tr := newTestSharedMemory(t)
	require.True(t, tr.CheckPermission(1, 2), "matches the original's shm_check_permission stub")
	require.True(t, tr.CheckPermission(99, 100), "true even for participants that don't exist")
}

func TestSharedMemoryTransport_SendRejectsOversizedMessage(t *testing.T) {
	tr := newTestSharedMemory(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)

	msg := msgFrom(1, 2, 0)
	msg.Size = tr.maxMessageSize + 1
	err = tr.SendMessage(id, msg)
	require.ErrorIs(t, err, kernel.ErrInvalidArgument)
}

func TestSharedMemoryTransport_DestroyDoesNotReclaimSlot(t *testing.T) {
	tr := NewSharedMemoryTransport(1)
	require.NoError(t, tr.Init())

	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)
	tr.DestroyChannel(id)

	_, err = tr.CreateChannel(3, 4)
	require.Error(t, err, "a destroyed region's slot is never reused")
}
