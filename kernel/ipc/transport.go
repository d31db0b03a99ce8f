// Package ipc implements the two transports named in spec section 4.5/4.6:
// a bounded message-queue transport and a single-slot shared-memory
// transport, both satisfying the Transport capability interface bound to
// the registry's "ipc_transport" role.
package ipc

import "github.com/import1bones/MTOS/kernel"

// ChannelID identifies a channel within a transport. Identifiers are
// monotonically increasing and never reused within a session (spec 4.5).
type ChannelID uint32

// Transport is the capability interface spec section 6 names for the IPC
// transport role.
type Transport interface {
	Name() string

	Init() error
	Shutdown()

	CreateChannel(senderID, receiverID uint32) (ChannelID, error)
	DestroyChannel(id ChannelID)

	SendMessage(id ChannelID, msg *kernel.Message) error
	ReceiveMessage(id ChannelID) (kernel.Message, error)
	TryReceive(id ChannelID) (kernel.Message, error)

	CanSend(id ChannelID) bool
	HasMessages(id ChannelID) bool
	GetQueueSize(id ChannelID) int

	CheckPermission(senderID, receiverID uint32) bool
	GrantCapability(grantor, grantee, rights uint32)

	PrintStats(sink kernel.Sink)

	Tick()
}
