// Package transform turns packet wrappers into the physical packets a
// given client version understands.
package transform

import (
	"fmt"
	"log/slog"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/wrapper"
)

// Pipeline applies catalog corrections and encodes the result.
type Pipeline struct {
	catalog *Catalog
}

// NewPipeline returns a pipeline backed by catalog. A nil catalog means
// no wrapper is ever corrected.
func NewPipeline(catalog *Catalog) *Pipeline {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Pipeline{catalog: catalog}
}

func (p *Pipeline) Catalog() *Catalog {
	return p.catalog
}

// Transform returns the packets that represent w for client version v, in
// the order the correction produced them. Either every packet is returned
// or none is: the first wrapper that cannot be encoded fails the call.
// w keeps the version it had before the call, so it can be transformed
// again for another client.
func (p *Pipeline) Transform(w wrapper.Wrapper, v protocol.ClientVersion) ([]*protocol.Packet, error) {
	defer w.SetClientVersion(w.ClientVersion())

	wrappers, err := p.correct(w, v)
	if err != nil {
		return nil, err
	}
	if len(wrappers) == 0 {
		slog.Debug("Packet suppressed for client version", "packet", w.Name(), "version", v)
		return nil, nil
	}
	buffers := make([]*protocol.Packet, 0, len(wrappers))
	for _, cw := range wrappers {
		cw.SetClientVersion(v)
		if err := cw.PrepareForSend(); err != nil {
			return nil, err
		}
		buffers = append(buffers, cw.Buffer())
	}
	return buffers, nil
}

// TransformAll transforms several wrappers for the same version and
// concatenates the results in argument order.
func (p *Pipeline) TransformAll(v protocol.ClientVersion, ws ...wrapper.Wrapper) ([]*protocol.Packet, error) {
	var out []*protocol.Packet
	for _, w := range ws {
		buffers, err := p.Transform(w, v)
		if err != nil {
			return nil, err
		}
		out = append(out, buffers...)
	}
	return out, nil
}

func (p *Pipeline) correct(w wrapper.Wrapper, v protocol.ClientVersion) ([]wrapper.Wrapper, error) {
	fn, ok := p.catalog.Lookup(w.Name())
	if !ok {
		return []wrapper.Wrapper{w}, nil
	}
	w.SetClientVersion(v)
	out, err := fn(w, v)
	if err != nil {
		return nil, fmt.Errorf("correct %s for %s: %w", w.Name(), v, err)
	}
	return out, nil
}
