package event

import (
	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/google/uuid"
)

const (
	EventPacketSend    = "packet.send"
	EventPacketReceive = "packet.receive"
	EventUserUpdated   = "user.updated"
	EventUserState     = "user.state"
	EventConnClosed    = "conn.closed"
)

// PacketEvent is published for every packet a normal primitive forwards.
// Packet is a copy; handlers may keep it.
type PacketEvent struct {
	Session uuid.UUID
	Remote  string
	State   protocol.State
	Packet  *protocol.Packet
	Flushed bool
}

type UserEvent struct {
	Session uuid.UUID
	Name    string
	Remote  string
	Version protocol.ClientVersion
}

type StateChangeEvent struct {
	Session uuid.UUID
	From    protocol.State
	To      protocol.State
}

type ConnClosedEvent struct {
	Session uuid.UUID
	Remote  string
	Err     error
}
