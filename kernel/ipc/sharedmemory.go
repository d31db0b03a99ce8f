package ipc

import (
	"fmt"

	"github.com/import1bones/MTOS/kernel"
	"github.com/import1bones/MTOS/kernel/config"
	ksync "github.com/import1bones/MTOS/kernel/sync"
)

const (
	// MaxRegions is the fixed number of shared-memory regions spec 4.6
	// allows, mirroring message-queue's fixed channel table.
	MaxRegions = 16

	// MaxParticipants bounds how many processes one region's permission
	// list can name.
	MaxParticipants = 8

	// RightRead and RightWrite are the two permission bits a participant
	// can hold on a region.
	RightRead  = 0x1
	RightWrite = 0x2
)

type participant struct {
	id     uint32
	rights uint32
}

// smRegion is a single-slot rendezvous: one pending message at a time,
// guarded by a spinlock rather than a queue. A send that finds the slot
// occupied fails at once; sends succeed again only after the receiver has
// drained the slot.
type smRegion struct {
	id      ChannelID
	creator uint32
	inUse   bool

	lock    ksync.Spinlock
	hasData bool
	message kernel.Message

	participants     [MaxParticipants]participant
	participantCount int

	sentCount     uint32
	receivedCount uint32
}

// SharedMemoryTransport implements spec 4.6. Unlike MessageQueueTransport,
// a destroyed region's slot is never reused — creating a channel always
// consumes a fresh index, per the original's pool discipline for shared
// memory (it reclaims the handle, not the backing region).
type SharedMemoryTransport struct {
	regions        []smRegion
	nextIndex      int
	nextChannelID  uint32
	currentTick    uint32
	maxMessageSize uint32
}

var _ Transport = (*SharedMemoryTransport)(nil)

// NewSharedMemoryTransport constructs a transport with room for maxRegions
// regions. Per spec section 6's data[4096] wire envelope vs. section 4.6's
// region-internal layout, a region's payload is capped at
// config.MaxMessageSize (1024), tighter than the wire format's general
// bound.
func NewSharedMemoryTransport(maxRegions int) *SharedMemoryTransport {
	return &SharedMemoryTransport{
		regions:        make([]smRegion, maxRegions),
		nextChannelID:  1,
		maxMessageSize: config.Default().MaxMessageSize,
	}
}

// Name implements Transport.
func (t *SharedMemoryTransport) Name() string { return "shared_memory" }

// Init implements Transport.
func (t *SharedMemoryTransport) Init() error {
	for i := range t.regions {
		t.regions[i] = smRegion{}
	}
	t.nextIndex = 0
	t.nextChannelID = 1
	t.currentTick = 0
	return nil
}

// Shutdown implements Transport.
func (t *SharedMemoryTransport) Shutdown() {
	for i := range t.regions {
		t.regions[i].inUse = false
	}
}

func (t *SharedMemoryTransport) findRegion(id ChannelID) *smRegion {
	for i := range t.regions {
		if t.regions[i].inUse && t.regions[i].id == id {
			return &t.regions[i]
		}
	}
	return nil
}

// CreateChannel implements Transport. The sender is the region's creator
// and starts with read+write rights; the receiver starts read-only.
func (t *SharedMemoryTransport) CreateChannel(senderID, receiverID uint32) (ChannelID, error) {
	if t.nextIndex >= len(t.regions) {
		return 0, kernel.ErrCapacityExhausted
	}

	region := &t.regions[t.nextIndex]
	*region = smRegion{
		id:      ChannelID(t.nextChannelID),
		creator: senderID,
		inUse:   true,
	}
	region.participants[0] = participant{id: senderID, rights: RightRead | RightWrite}
	region.participants[1] = participant{id: receiverID, rights: RightRead}
	region.participantCount = 2

	t.nextIndex++
	t.nextChannelID++
	return region.id, nil
}

// DestroyChannel implements Transport. The region is marked unavailable
// but its slot in t.regions is never reused by a later CreateChannel.
func (t *SharedMemoryTransport) DestroyChannel(id ChannelID) {
	region := t.findRegion(id)
	if region == nil {
		return
	}
	region.inUse = false
}

func (r *smRegion) participantRights(id uint32) (uint32, bool) {
	for i := 0; i < r.participantCount; i++ {
		if r.participants[i].id == id {
			return r.participants[i].rights, true
		}
	}
	return 0, false
}

// SendMessage implements Transport: requires the write right, then takes
// the region's spinlock to publish into the single slot.
func (t *SharedMemoryTransport) SendMessage(id ChannelID, msg *kernel.Message) error {
	if msg == nil {
		return kernel.ErrInvalidArgument
	}
	if msg.Size > t.maxMessageSize {
		return kernel.ErrInvalidArgument
	}
	region := t.findRegion(id)
	if region == nil {
		return kernel.ErrNotFound
	}

	rights, ok := region.participantRights(msg.SenderID)
	if !ok || rights&RightWrite == 0 {
		return kernel.ErrPolicyDenied
	}

	region.lock.Acquire()
	defer region.lock.Release()

	if region.hasData {
		return kernel.ErrCapacityExhausted
	}

	region.message = *msg
	region.message.Timestamp = t.currentTick
	region.hasData = true
	region.sentCount++
	return nil
}

func (t *SharedMemoryTransport) receive(id ChannelID) (kernel.Message, error) {
	region := t.findRegion(id)
	if region == nil {
		return kernel.Message{}, kernel.ErrNotFound
	}

	region.lock.Acquire()
	defer region.lock.Release()

	if !region.hasData {
		return kernel.Message{}, kernel.ErrCapacityExhausted
	}

	msg := region.message
	region.hasData = false
	region.receivedCount++
	return msg, nil
}

// ReceiveMessage implements Transport.
func (t *SharedMemoryTransport) ReceiveMessage(id ChannelID) (kernel.Message, error) {
	return t.receive(id)
}

// TryReceive implements Transport. The rendezvous protocol is already
// non-blocking, so this is the same operation as ReceiveMessage.
func (t *SharedMemoryTransport) TryReceive(id ChannelID) (kernel.Message, error) {
	return t.receive(id)
}

// CanSend implements Transport: true only while the slot is empty.
func (t *SharedMemoryTransport) CanSend(id ChannelID) bool {
	region := t.findRegion(id)
	if region == nil {
		return false
	}
	return !region.hasData
}

// HasMessages implements Transport.
func (t *SharedMemoryTransport) HasMessages(id ChannelID) bool {
	region := t.findRegion(id)
	return region != nil && region.hasData
}

// GetQueueSize implements Transport: a region holds at most one message.
func (t *SharedMemoryTransport) GetQueueSize(id ChannelID) int {
	region := t.findRegion(id)
	if region == nil || !region.hasData {
		return 0
	}
	return 1
}

// CheckPermission implements Transport. The original's shm_check_permission
// is an explicit stub ("In a real OS, this would check security policies.
// For educational purposes, allow all communications.") — the real
// write-bit rule spec 4.6 names is enforced inline in SendMessage, not
// here.
func (t *SharedMemoryTransport) CheckPermission(uint32, uint32) bool { return true }

// GrantCapability implements Transport: it walks every region created by
// grantor and adds grantee with the given rights, if grantee isn't already
// a participant and the region has a free slot. This is the real
// implementation the original reserves for shared memory — message-queue's
// GrantCapability is the no-op stub.
func (t *SharedMemoryTransport) GrantCapability(grantor, grantee, rights uint32) {
	for i := range t.regions {
		region := &t.regions[i]
		if !region.inUse || region.creator != grantor {
			continue
		}
		if _, exists := region.participantRights(grantee); exists {
			continue
		}
		if region.participantCount >= MaxParticipants {
			continue
		}
		region.participants[region.participantCount] = participant{id: grantee, rights: rights}
		region.participantCount++
	}
}

// Tick implements Transport.
func (t *SharedMemoryTransport) Tick() { t.currentTick++ }

// PrintStats implements Transport.
func (t *SharedMemoryTransport) PrintStats(sink kernel.Sink) {
	active := 0
	var totalSent, totalReceived uint32
	for i := range t.regions {
		if t.regions[i].inUse {
			active++
			totalSent += t.regions[i].sentCount
			totalReceived += t.regions[i].receivedCount
		}
	}

	sink.PrintLine("SHARED MEMORY IPC STATISTICS:")
	sink.PrintLine(fmt.Sprintf("  Active regions: %d", active))
	sink.PrintLine(fmt.Sprintf("  Current tick: %d", t.currentTick))
	sink.PrintLine(fmt.Sprintf("  Total messages sent: %d", totalSent))
	sink.PrintLine(fmt.Sprintf("  Total messages received: %d", totalReceived))

	sink.PrintLine("")
	sink.PrintLine("  Regions:")
	for i := range t.regions {
		region := &t.regions[i]
		if region.inUse {
			sink.PrintLine(fmt.Sprintf("    Region %d: creator=%d, participants=%d, has_data=%v, sent=%d, received=%d",
				region.id, region.creator, region.participantCount, region.hasData, region.sentCount, region.receivedCount))
		}
	}
}
