package protocol

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

const MaxPacketSize = 2097152 // 2MB

// Packet is one physical packet: a VarInt id followed by its payload,
// before length framing and compression.
type Packet struct {
	ID      int32
	Payload []byte
}

// Clone returns a deep copy so hooks can rewrite a packet without touching
// the caller's buffer.
func (p *Packet) Clone() *Packet {
	if p == nil {
		return nil
	}
	payload := make([]byte, len(p.Payload))
	copy(payload, p.Payload)
	return &Packet{ID: p.ID, Payload: payload}
}

// Len is the unframed size of the packet: id plus payload.
func (p *Packet) Len() int {
	return VarintLen(p.ID) + len(p.Payload)
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet{id=0x%02x len=%d}", p.ID, len(p.Payload))
}

// ReadPacket reads one framed packet. A negative threshold means
// compression has not been enabled on the connection.
func ReadPacket(r io.Reader, threshold int) (*Packet, error) {
	frame, err := ReadFrame(r, MaxPacketSize)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(frame, threshold)
}

// ReadFrame reads the length prefix and the frame body it announces,
// without interpreting the body. limit <= 0 means MaxPacketSize.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxPacketSize
	}
	packetLen, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if packetLen <= 0 {
		return nil, ErrInvalidPacket
	}
	if int(packetLen) > limit {
		return nil, ErrPacketTooLarge
	}

	data := make([]byte, packetLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Join(ErrInvalidPacket, err)
	}
	return data, nil
}

// DecodeFrame parses a frame body read by ReadFrame. Relays that learn the
// threshold mid-stream read the frame first and pick the threshold after.
func DecodeFrame(frame []byte, threshold int) (*Packet, error) {
	body := io.Reader(bytes.NewReader(frame))
	if threshold >= 0 {
		var err error
		body, err = decompress(body)
		if err != nil {
			return nil, err
		}
	}

	id, err := ReadVarint(body)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return &Packet{
		ID:      id,
		Payload: payload,
	}, nil
}

// decompress consumes the Data Length prefix and inflates the body when
// it is non-zero. A zero Data Length means the sender left it uncompressed.
func decompress(r io.Reader) (io.Reader, error) {
	dataLen, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if dataLen == 0 {
		return r, nil
	}
	if dataLen < 0 || dataLen > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	z, err := zlib.NewReader(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidPacket, err)
	}
	defer z.Close()

	decompressed := make([]byte, dataLen)
	if _, err := io.ReadFull(z, decompressed); err != nil {
		return nil, errors.Join(ErrInvalidPacket, err)
	}
	return bytes.NewReader(decompressed), nil
}

// EncodePacket frames packet for the wire.
//
//	threshold < 0:  [Length] [ID] [Payload]
//	threshold >= 0: [Length] [Data Length] [ID + Payload, zlib'd when Data Length != 0]
func EncodePacket(packet *Packet, threshold int) ([]byte, error) {
	raw := make([]byte, 0, packet.Len())
	raw = AppendVarint(raw, packet.ID)
	raw = append(raw, packet.Payload...)

	if threshold < 0 {
		out := make([]byte, 0, VarintLen(int32(len(raw)))+len(raw))
		out = AppendVarint(out, int32(len(raw)))
		return append(out, raw...), nil
	}

	var dataLength int32
	body := raw
	if len(raw) >= threshold {
		var buf bytes.Buffer
		z := zlib.NewWriter(&buf)
		if _, err := z.Write(raw); err != nil {
			return nil, err
		}
		if err := z.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
		dataLength = int32(len(raw))
	}

	inner := VarintLen(dataLength) + len(body)
	out := make([]byte, 0, VarintLen(int32(inner))+inner)
	out = AppendVarint(out, int32(inner))
	out = AppendVarint(out, dataLength)
	return append(out, body...), nil
}

func WritePacket(w io.Writer, packet *Packet, threshold int) error {
	frame, err := EncodePacket(packet, threshold)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}
