package ipc

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"
)

const (
	// DefaultMaxChannels and DefaultMaxQueueDepth are spec 4.5's literal
	// constants: 32 channels, each with a capacity of 16 messages drawn
	// from a shared pool of 32*16 entries.
	DefaultMaxChannels   = 32
	DefaultMaxQueueDepth = 16
)

type mqChannel struct {
	id         ChannelID
	senderID   uint32
	receiverID uint32
	inUse      bool

	queue        []int // pool entry indices, head at index 0
	maxQueueSize int
	isBlocking   bool
	sent, recv   uint32
	dropped      uint32
}

// MessageQueueTransport implements spec 4.5: a fixed channel table, each a
// bounded FIFO backed by entries drawn from one shared pool.
type MessageQueueTransport struct {
	channels       []mqChannel
	nextChannelID  uint32
	activeChannels int
	currentTick    uint32

	pool        []kernel.Message
	poolUsed    []bool
	nextEntry   int
	maxChannels int
}

var _ Transport = (*MessageQueueTransport)(nil)

// NewMessageQueueTransport constructs a transport with maxChannels
// channels, each able to hold up to maxQueueDepth messages.
func NewMessageQueueTransport(maxChannels, maxQueueDepth int) *MessageQueueTransport {
	return &MessageQueueTransport{
		channels:      make([]mqChannel, maxChannels),
		pool:          make([]kernel.Message, maxChannels*maxQueueDepth),
		poolUsed:      make([]bool, maxChannels*maxQueueDepth),
		nextChannelID: 1,
		maxChannels:   maxChannels,
	}
}

// Name implements Transport.
func (t *MessageQueueTransport) Name() string { return "message_queue" }

// Init implements Transport.
func (t *MessageQueueTransport) Init() error {
	for i := range t.channels {
		t.channels[i] = mqChannel{maxQueueSize: cap(t.pool) / t.maxChannels, isBlocking: true}
	}
	for i := range t.poolUsed {
		t.poolUsed[i] = false
	}
	t.nextChannelID = 1
	t.activeChannels = 0
	t.currentTick = 0
	t.nextEntry = 0
	return nil
}

// Shutdown implements Transport.
func (t *MessageQueueTransport) Shutdown() {
	for i := range t.channels {
		t.releaseChannelEntries(&t.channels[i])
		t.channels[i].inUse = false
	}
	t.activeChannels = 0
}

func (t *MessageQueueTransport) releaseChannelEntries(ch *mqChannel) {
	for _, idx := range ch.queue {
		t.poolUsed[idx] = false
	}
	ch.queue = nil
}

// allocEntry performs the circular free-entry search spec 4.5 describes:
// starting at nextEntry, scan the whole pool once.
func (t *MessageQueueTransport) allocEntry() (int, bool) {
	n := len(t.pool)
	for i := 0; i < n; i++ {
		idx := (t.nextEntry + i) % n
		if !t.poolUsed[idx] {
			t.poolUsed[idx] = true
			t.nextEntry = (idx + 1) % n
			return idx, true
		}
	}
	return 0, false
}

func (t *MessageQueueTransport) findChannelByID(id ChannelID) *mqChannel {
	for i := range t.channels {
		if t.channels[i].inUse && t.channels[i].id == id {
			return &t.channels[i]
		}
	}
	return nil
}

func (t *MessageQueueTransport) findChannelByParticipants(sender, receiver uint32) *mqChannel {
	for i := range t.channels {
		ch := &t.channels[i]
		if ch.inUse && ch.senderID == sender && ch.receiverID == receiver {
			return ch
		}
	}
	return nil
}

func (t *MessageQueueTransport) findFreeSlot() int {
	for i := range t.channels {
		if !t.channels[i].inUse {
			return i
		}
	}
	return -1
}

// CreateChannel implements Transport.
func (t *MessageQueueTransport) CreateChannel(senderID, receiverID uint32) (ChannelID, error) {
	if existing := t.findChannelByParticipants(senderID, receiverID); existing != nil {
		return existing.id, nil
	}

	slot := t.findFreeSlot()
	if slot < 0 {
		return 0, kernel.ErrCapacityExhausted
	}

	ch := &t.channels[slot]
	*ch = mqChannel{
		id:           ChannelID(t.nextChannelID),
		senderID:     senderID,
		receiverID:   receiverID,
		maxQueueSize: len(t.pool) / t.maxChannels,
		isBlocking:   true,
		inUse:        true,
	}
	t.nextChannelID++
	t.activeChannels++
	return ch.id, nil
}

// DestroyChannel implements Transport.
func (t *MessageQueueTransport) DestroyChannel(id ChannelID) {
	ch := t.findChannelByID(id)
	if ch == nil {
		return
	}
	t.releaseChannelEntries(ch)
	ch.inUse = false
	t.activeChannels--
}

// SendMessage implements Transport, mirroring mq_send_message's two
// distinct failure modes: a full queue and an exhausted pool both drop.
func (t *MessageQueueTransport) SendMessage(id ChannelID, msg *kernel.Message) error {
	if msg == nil {
		return kernel.ErrInvalidArgument
	}
	if msg.Size > kernel.MaxMessageSize {
		return kernel.ErrInvalidArgument
	}
	ch := t.findChannelByID(id)
	if ch == nil {
		return kernel.ErrNotFound
	}

	if len(ch.queue) >= ch.maxQueueSize {
		ch.dropped++
		return kernel.ErrCapacityExhausted
	}

	idx, ok := t.allocEntry()
	if !ok {
		ch.dropped++
		return kernel.ErrCapacityExhausted
	}

	entry := *msg
	entry.Timestamp = t.currentTick
	t.pool[idx] = entry
	ch.queue = append(ch.queue, idx)
	ch.sent++
	return nil
}

func (t *MessageQueueTransport) dequeue(ch *mqChannel) (kernel.Message, bool) {
	if len(ch.queue) == 0 {
		return kernel.Message{}, false
	}
	idx := ch.queue[0]
	ch.queue = ch.queue[1:]
	msg := t.pool[idx]
	t.poolUsed[idx] = false
	return msg, true
}

// ReceiveMessage implements Transport.
func (t *MessageQueueTransport) ReceiveMessage(id ChannelID) (kernel.Message, error) {
	ch := t.findChannelByID(id)
	if ch == nil {
		return kernel.Message{}, kernel.ErrNotFound
	}
	msg, ok := t.dequeue(ch)
	if !ok {
		return kernel.Message{}, kernel.ErrCapacityExhausted
	}
	ch.recv++
	return msg, nil
}

// TryReceive implements Transport. spec.md's Open Questions note this is
// literally identical to ReceiveMessage in the original and leaves it so.
func (t *MessageQueueTransport) TryReceive(id ChannelID) (kernel.Message, error) {
	return t.ReceiveMessage(id)
}

// CanSend implements Transport.
func (t *MessageQueueTransport) CanSend(id ChannelID) bool {
	ch := t.findChannelByID(id)
	if ch == nil {
		return false
	}
	return len(ch.queue) < ch.maxQueueSize
}

// HasMessages implements Transport.
func (t *MessageQueueTransport) HasMessages(id ChannelID) bool {
	ch := t.findChannelByID(id)
	return ch != nil && len(ch.queue) > 0
}

// GetQueueSize implements Transport.
func (t *MessageQueueTransport) GetQueueSize(id ChannelID) int {
	ch := t.findChannelByID(id)
	if ch == nil {
		return 0
	}
	return len(ch.queue)
}

// CheckPermission implements Transport: a security stub, per spec 4.5.
func (t *MessageQueueTransport) CheckPermission(uint32, uint32) bool { return true }

// GrantCapability implements Transport. spec 4.5 leaves this a stub
// acknowledging the call — the walk-and-append semantics spec 4.6 requires
// belong to the shared-memory transport, which actually owns participant
// lists.
func (t *MessageQueueTransport) GrantCapability(uint32, uint32, uint32) {}

// Tick implements Transport.
func (t *MessageQueueTransport) Tick() { t.currentTick++ }

// PrintStats implements Transport.
func (t *MessageQueueTransport) PrintStats(sink kernel.Sink) {
	var totalSent, totalRecv, totalDropped uint32
	var totalQueued int

	sink.PrintLine("MESSAGE QUEUE IPC STATISTICS:")
	sink.PrintLine(fmt.Sprintf("  Active channels: %d", t.activeChannels))
	sink.PrintLine(fmt.Sprintf("  Current tick: %d", t.currentTick))

	for i := range t.channels {
		ch := &t.channels[i]
		if ch.inUse {
			totalSent += ch.sent
			totalRecv += ch.recv
			totalDropped += ch.dropped
			totalQueued += len(ch.queue)
		}
	}

	sink.PrintLine(fmt.Sprintf("  Total messages sent: %d", totalSent))
	sink.PrintLine(fmt.Sprintf("  Total messages received: %d", totalRecv))
	sink.PrintLine(fmt.Sprintf("  Total messages dropped: %d", totalDropped))
	sink.PrintLine(fmt.Sprintf("  Total messages queued: %d", totalQueued))

	if totalSent > 0 {
		sink.PrintLine(fmt.Sprintf("  Delivery rate: %.1f%%", 100.0*float64(totalRecv)/float64(totalSent)))
	}
	if totalSent+totalDropped > 0 {
		sink.PrintLine(fmt.Sprintf("  Drop rate: %.1f%%", 100.0*float64(totalDropped)/float64(totalSent+totalDropped)))
	}

	sink.PrintLine("")
	sink.PrintLine("  Active channels:")
	for i := range t.channels {
		ch := &t.channels[i]
		if ch.inUse {
			sink.PrintLine(fmt.Sprintf("    Channel %d: %d->%d, %d/%d messages, %d sent, %d received",
				ch.id, ch.senderID, ch.receiverID, len(ch.queue), ch.maxQueueSize, ch.sent, ch.recv))
		}
	}
}
