package ipc

import (
	"testing"

	"github.com/import1bones/MTOS/kernel"
	"github.com/stretchr/testify/require"
)

func newTestMessageQueue(t *testing.T) *MessageQueueTransport {
	t.Helper()
	tr := NewMessageQueueTransport(DefaultMaxChannels, DefaultMaxQueueDepth)
	require.NoError(t, tr.Init())
	return tr
}

func msgFrom(sender, receiver uint32, payload byte) *kernel.Message {
	m := &kernel.Message{SenderID: sender, ReceiverID: receiver, Size: 1}
	m.Data[0] = payload
	return m
}

// TestMessageQueueTransport_S5Backpressure reproduces spec scenario S5: a
// channel with capacity 16 accepts 16 sends and drops the remaining 4 of
// 20 attempted, then drains in FIFO order.
func TestMessageQueueTransport_S5Backpressure(t *testing.T) {
	tr := newTestMessageQueue(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)

	var dropped int
	for i := 0; i < 20; i++ {
		if err := tr.SendMessage(id, msgFrom(1, 2, byte(i))); err != nil {
			dropped++
		}
	}
	require.Equal(t, 4, dropped)
	require.Equal(t, DefaultMaxQueueDepth, tr.GetQueueSize(id))

	for i := 0; i < DefaultMaxQueueDepth; i++ {
		msg, err := tr.ReceiveMessage(id)
		require.NoError(t, err)
		require.Equal(t, byte(i), msg.Data[0], "messages must drain in FIFO order")
	}

	_, err = tr.ReceiveMessage(id)
	require.Error(t, err)
}

func TestMessageQueueTransport_CreateChannelDedups(t *testing.T) {
	tr := newTestMessageQueue(t)
	id1, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)
	id2, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestMessageQueueTransport_TryReceiveMatchesReceive(t *testing.T) {
	tr := newTestMessageQueue(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)
	require.NoError(t, tr.SendMessage(id, msgFrom(1, 2, 7)))

	msg, err := tr.TryReceive(id)
	require.NoError(t, err)
	require.Equal(t, byte(7), msg.Data[0])
}

func TestMessageQueueTransport_PoolExhaustionAcrossChannels(t *testing.T) {
	tr := NewMessageQueueTransport(2, 2)
	require.NoError(t, tr.Init())

	id1, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)
	id2, err := tr.CreateChannel(3, 4)
	require.NoError(t, err)

	require.NoError(t, tr.SendMessage(id1, msgFrom(1, 2, 0)))
	require.NoError(t, tr.SendMessage(id1, msgFrom(1, 2, 1)))
	require.NoError(t, tr.SendMessage(id2, msgFrom(3, 4, 0)))
	require.NoError(t, tr.SendMessage(id2, msgFrom(3, 4, 1)))

	err = tr.SendMessage(id2, msgFrom(3, 4, 2))
	require.Error(t, err, "both per-channel capacity and the shared pool are exhausted")
}

func TestMessageQueueTransport_SendRejectsOversizedMessage(t *testing.T) {
	tr := newTestMessageQueue(t)
	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)

	msg := msgFrom(1, 2, 0)
	msg.Size = kernel.MaxMessageSize + 1
	err = tr.SendMessage(id, msg)
	require.ErrorIs(t, err, kernel.ErrInvalidArgument)
}

func TestMessageQueueTransport_DestroyChannelFreesCapability(t *testing.T) {
	tr := NewMessageQueueTransport(1, 4)
	require.NoError(t, tr.Init())

	id, err := tr.CreateChannel(1, 2)
	require.NoError(t, err)
	tr.DestroyChannel(id)

	_, err = tr.CreateChannel(3, 4)
	require.NoError(t, err, "destroying a channel must free its slot for reuse")
}
