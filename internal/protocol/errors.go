package protocol

import "errors"

var (
	ErrVarIntTooLong  = errors.New("varint is too long")
	ErrPacketTooLarge = errors.New("packet size exceeds maximum allowed")
	ErrInvalidPacket  = errors.New("invalid packet structure")

	// ErrProtocolMismatch is returned when a packet has no wire
	// representation for the client version it is being encoded for.
	ErrProtocolMismatch = errors.New("packet has no representation for client version")
	ErrUnknownState     = errors.New("unknown connection state")
	ErrUnknownVersion   = errors.New("unknown client version")
)
