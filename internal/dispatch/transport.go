package dispatch

import (
	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
)

// Transport is the connection layer the Manager forwards packets to. C is
// its connection handle. The silent primitives must behave exactly like
// their normal counterparts except that they skip whatever interception
// the transport applies.
type Transport[C comparable] interface {
	// SendPacket writes p towards the peer and flushes.
	SendPacket(c C, p *protocol.Packet) error
	SendPacketSilently(c C, p *protocol.Packet) error
	// WritePacket buffers p towards the peer without flushing.
	WritePacket(c C, p *protocol.Packet) error
	WritePacketSilently(c C, p *protocol.Packet) error
	// ReceivePacket processes p as if the peer had sent it.
	ReceivePacket(c C, p *protocol.Packet) error
	ReceivePacketSilently(c C, p *protocol.Packet) error

	// ClientVersion reports the version negotiated on c.
	ClientVersion(c C) protocol.ClientVersion
	// UpdateUser is called after a Session is registered for c.
	UpdateUser(c C, s *session.Session)
}

// Op selects the direction and flushing behaviour of a dispatch.
type Op int

const (
	OpSend Op = iota
	OpWrite
	OpReceive
)

func (o Op) String() string {
	switch o {
	case OpSend:
		return "send"
	case OpWrite:
		return "write"
	case OpReceive:
		return "receive"
	default:
		return "op(?)"
	}
}

func primitive[C comparable](t Transport[C], op Op, silent bool) func(C, *protocol.Packet) error {
	switch op {
	case OpSend:
		if silent {
			return t.SendPacketSilently
		}
		return t.SendPacket
	case OpWrite:
		if silent {
			return t.WritePacketSilently
		}
		return t.WritePacket
	case OpReceive:
		if silent {
			return t.ReceivePacketSilently
		}
		return t.ReceivePacket
	default:
		return nil
	}
}
