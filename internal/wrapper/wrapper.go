// Package wrapper holds the typed, version-aware packet wrappers and the
// corrections that rewrite them for a client version.
package wrapper

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Versifine/packetgate/internal/protocol"
)

// ErrVersionNotSet is returned by PrepareForSend when no client version
// has been bound to the wrapper.
var ErrVersionNotSet = errors.New("wrapper has no client version")

// Wrapper is one logical packet. It is encoded lazily: PrepareForSend
// encodes it for the bound client version, after which Buffer returns the
// physical packet. Changing the version discards the encoded buffer.
type Wrapper interface {
	Name() string
	ClientVersion() protocol.ClientVersion
	SetClientVersion(v protocol.ClientVersion)
	PrepareForSend() error
	Buffer() *protocol.Packet
}

// Correction rewrites w into the wrappers that represent it for client
// version v. Returning w alone leaves it untouched, returning several
// splits it, returning none suppresses it.
type Correction func(w Wrapper, v protocol.ClientVersion) ([]Wrapper, error)

// Base carries the version and buffer bookkeeping shared by all wrappers.
type Base struct {
	version protocol.ClientVersion
	buffer  *protocol.Packet
}

func (b *Base) ClientVersion() protocol.ClientVersion {
	return b.version
}

func (b *Base) SetClientVersion(v protocol.ClientVersion) {
	if b.version != v {
		b.buffer = nil
	}
	b.version = v
}

// Buffer returns the packet built by the last successful PrepareForSend,
// or nil.
func (b *Base) Buffer() *protocol.Packet {
	return b.buffer
}

// finalize looks up the packet id for the bound version and encodes the
// payload with encode.
func (b *Base) finalize(name string, ids idTable, encode func(w *bytes.Buffer, v protocol.ClientVersion) error) error {
	b.buffer = nil
	if !b.version.IsKnown() {
		return fmt.Errorf("%s: %w", name, ErrVersionNotSet)
	}
	id, ok := ids.lookup(b.version)
	if !ok {
		return mismatch(name, b.version)
	}
	buf := new(bytes.Buffer)
	if err := encode(buf, b.version); err != nil {
		return fmt.Errorf("encode %s for %s: %w", name, b.version, err)
	}
	b.buffer = &protocol.Packet{ID: id, Payload: buf.Bytes()}
	return nil
}

func mismatch(name string, v protocol.ClientVersion) error {
	return fmt.Errorf("%s for %s: %w", name, v, protocol.ErrProtocolMismatch)
}

type idSince struct {
	since protocol.ClientVersion
	id    int32
}

// idTable lists the packet id a packet has from each release on, oldest
// first.
type idTable []idSince

func (t idTable) lookup(v protocol.ClientVersion) (int32, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if v.IsNewerThanOrEquals(t[i].since) {
			return t[i].id, true
		}
	}
	return 0, false
}

// since returns the first release the table has an id for.
func (t idTable) since() protocol.ClientVersion {
	if len(t) == 0 {
		return protocol.Unknown
	}
	return t[0].since
}

// Raw wraps an already-encoded packet. It has no version-specific form;
// PrepareForSend copies the packet as-is.
type Raw struct {
	Base
	Packet *protocol.Packet
}

func NewRaw(id int32, payload []byte) *Raw {
	return &Raw{Packet: &protocol.Packet{ID: id, Payload: payload}}
}

func (*Raw) Name() string { return "raw" }

func (p *Raw) PrepareForSend() error {
	if p.Packet == nil {
		return fmt.Errorf("raw: %w", protocol.ErrInvalidPacket)
	}
	p.buffer = p.Packet.Clone()
	return nil
}
