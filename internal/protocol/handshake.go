package protocol

import (
	"bytes"
	"io"
)

type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

// ClientVersion is the version the client announced.
func (h *Handshake) ClientVersion() ClientVersion {
	return ClientVersion(h.ProtocolVersion)
}

func ParseHandshake(r io.Reader) (*Handshake, error) {
	protocolVersion, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	serverAddress, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	serverPort, err := ReadUnsignedShort(r)
	if err != nil {
		return nil, err
	}
	nextState, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}

	return &Handshake{
		ProtocolVersion: protocolVersion,
		ServerAddress:   serverAddress,
		ServerPort:      serverPort,
		NextState:       nextState,
	}, nil
}

func CreateHandshakePacket(version ClientVersion, host string, port uint16, nextState int32) *Packet {
	buf := new(bytes.Buffer)
	_ = WriteVarint(buf, int32(version))
	_ = WriteString(buf, host)
	_ = WriteUnsignedShort(buf, port)
	_ = WriteVarint(buf, nextState)
	return &Packet{
		ID:      C2SHandshake,
		Payload: buf.Bytes(),
	}
}
