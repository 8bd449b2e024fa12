// Package dispatch is the entry point applications use to send, write and
// receive packets on registered connections.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
	"github.com/Versifine/packetgate/internal/transform"
	"github.com/Versifine/packetgate/internal/wrapper"
	"github.com/google/uuid"
)

var ErrUnknownOp = errors.New("unknown dispatch op")

// Manager routes packets between the application and a Transport. It owns
// no connection state besides the session registry it is given.
type Manager[C comparable] struct {
	registry  *session.Registry[C]
	pipeline  *transform.Pipeline
	transport Transport[C]
	platform  protocol.ClientVersion
}

type Option[C comparable] func(*Manager[C])

// WithPlatformVersion sets the version of the server the proxy fronts.
func WithPlatformVersion[C comparable](v protocol.ClientVersion) Option[C] {
	return func(m *Manager[C]) { m.platform = v }
}

func NewManager[C comparable](registry *session.Registry[C], pipeline *transform.Pipeline, transport Transport[C], opts ...Option[C]) *Manager[C] {
	m := &Manager[C]{
		registry:  registry,
		pipeline:  pipeline,
		transport: transport,
		platform:  protocol.LatestRelease,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager[C]) PlatformVersion() protocol.ClientVersion {
	return m.platform
}

// dispatch forwards bufs, in order, to the primitive selected by op and
// silent. It stops at the first transport error.
func (m *Manager[C]) dispatch(c C, op Op, silent bool, bufs []*protocol.Packet) error {
	if _, ok := m.registry.Get(c); !ok {
		return fmt.Errorf("%s: %w", op, session.ErrUnregisteredChannel)
	}
	forward := primitive(m.transport, op, silent)
	if forward == nil {
		return fmt.Errorf("%w: %d", ErrUnknownOp, int(op))
	}
	for i, buf := range bufs {
		if err := forward(c, buf); err != nil {
			return fmt.Errorf("%s packet %d of %d: %w", op, i+1, len(bufs), err)
		}
	}
	return nil
}

func (m *Manager[C]) dispatchWrapper(c C, op Op, silent bool, w wrapper.Wrapper) error {
	bufs, err := m.TransformWrappers(c, w)
	if err != nil {
		return err
	}
	return m.dispatch(c, op, silent, bufs)
}

// TransformWrappers encodes w for the client on c. The wrapper's own
// version wins when it has one; otherwise the version negotiated on c is
// used, then the one recorded on its Session.
func (m *Manager[C]) TransformWrappers(c C, w wrapper.Wrapper) ([]*protocol.Packet, error) {
	s, ok := m.registry.Get(c)
	if !ok {
		return nil, fmt.Errorf("transform %s: %w", w.Name(), session.ErrUnregisteredChannel)
	}
	return m.pipeline.Transform(w, m.targetVersion(c, s, w))
}

func (m *Manager[C]) targetVersion(c C, s *session.Session, w wrapper.Wrapper) protocol.ClientVersion {
	if v := w.ClientVersion(); v.IsKnown() {
		return v
	}
	if v := m.transport.ClientVersion(c); v.IsKnown() {
		return v
	}
	return s.ClientVersion()
}

func (m *Manager[C]) SendPacket(c C, buf *protocol.Packet) error {
	return m.dispatch(c, OpSend, false, []*protocol.Packet{buf})
}

func (m *Manager[C]) SendPackets(c C, bufs ...*protocol.Packet) error {
	return m.dispatch(c, OpSend, false, bufs)
}

func (m *Manager[C]) SendPacketSilently(c C, buf *protocol.Packet) error {
	return m.dispatch(c, OpSend, true, []*protocol.Packet{buf})
}

func (m *Manager[C]) SendPacketsSilently(c C, bufs ...*protocol.Packet) error {
	return m.dispatch(c, OpSend, true, bufs)
}

func (m *Manager[C]) WritePacket(c C, buf *protocol.Packet) error {
	return m.dispatch(c, OpWrite, false, []*protocol.Packet{buf})
}

func (m *Manager[C]) WritePackets(c C, bufs ...*protocol.Packet) error {
	return m.dispatch(c, OpWrite, false, bufs)
}

func (m *Manager[C]) WritePacketSilently(c C, buf *protocol.Packet) error {
	return m.dispatch(c, OpWrite, true, []*protocol.Packet{buf})
}

func (m *Manager[C]) WritePacketsSilently(c C, bufs ...*protocol.Packet) error {
	return m.dispatch(c, OpWrite, true, bufs)
}

func (m *Manager[C]) ReceivePacket(c C, buf *protocol.Packet) error {
	return m.dispatch(c, OpReceive, false, []*protocol.Packet{buf})
}

func (m *Manager[C]) ReceivePackets(c C, bufs ...*protocol.Packet) error {
	return m.dispatch(c, OpReceive, false, bufs)
}

func (m *Manager[C]) ReceivePacketSilently(c C, buf *protocol.Packet) error {
	return m.dispatch(c, OpReceive, true, []*protocol.Packet{buf})
}

func (m *Manager[C]) ReceivePacketsSilently(c C, bufs ...*protocol.Packet) error {
	return m.dispatch(c, OpReceive, true, bufs)
}

func (m *Manager[C]) SendWrapper(c C, w wrapper.Wrapper) error {
	return m.dispatchWrapper(c, OpSend, false, w)
}

func (m *Manager[C]) SendWrapperSilently(c C, w wrapper.Wrapper) error {
	return m.dispatchWrapper(c, OpSend, true, w)
}

func (m *Manager[C]) WriteWrapper(c C, w wrapper.Wrapper) error {
	return m.dispatchWrapper(c, OpWrite, false, w)
}

func (m *Manager[C]) WriteWrapperSilently(c C, w wrapper.Wrapper) error {
	return m.dispatchWrapper(c, OpWrite, true, w)
}

func (m *Manager[C]) ReceiveWrapper(c C, w wrapper.Wrapper) error {
	return m.dispatchWrapper(c, OpReceive, false, w)
}

func (m *Manager[C]) ReceiveWrapperSilently(c C, w wrapper.Wrapper) error {
	return m.dispatchWrapper(c, OpReceive, true, w)
}

// Broadcast sends w to every registered connection whose state is one of
// states, or to all of them when no state is given. w is encoded once per
// client version, picked for each connection as TransformWrappers does.
// Failures do not stop the broadcast; they are joined into the returned
// error.
func (m *Manager[C]) Broadcast(w wrapper.Wrapper, states ...protocol.State) error {
	return m.broadcast(w, false, states)
}

func (m *Manager[C]) BroadcastSilently(w wrapper.Wrapper, states ...protocol.State) error {
	return m.broadcast(w, true, states)
}

func (m *Manager[C]) broadcast(w wrapper.Wrapper, silent bool, states []protocol.State) error {
	type encoded struct {
		bufs []*protocol.Packet
		err  error
	}
	byVersion := make(map[protocol.ClientVersion]encoded)
	var errs []error
	for _, e := range m.registry.Entries() {
		if len(states) > 0 && !slices.Contains(states, e.Session.ConnectionState()) {
			continue
		}
		v := m.targetVersion(e.Channel, e.Session, w)
		enc, ok := byVersion[v]
		if !ok {
			bufs, err := m.pipeline.Transform(w, v)
			enc = encoded{bufs: bufs, err: err}
			byVersion[v] = enc
			if err != nil {
				errs = append(errs, err)
			}
		}
		if enc.err != nil {
			continue
		}
		if err := m.dispatch(e.Channel, OpSend, silent, enc.bufs); err != nil {
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", e.Session.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// RegisterSession registers s for c, replacing any previous Session, and
// lets the transport react to it.
func (m *Manager[C]) RegisterSession(c C, s *session.Session) {
	if prev := m.registry.Put(c, s); prev != nil {
		slog.Debug("Session replaced", "old", prev.ID(), "new", s.ID())
	}
	m.transport.UpdateUser(c, s)
}

// Unregister forgets c. Dispatching to c afterwards fails with
// ErrUnregisteredChannel.
func (m *Manager[C]) Unregister(c C) (*session.Session, bool) {
	return m.registry.Forget(c)
}

func (m *Manager[C]) User(c C) (*session.Session, bool) {
	return m.registry.Get(c)
}

func (m *Manager[C]) Channel(id uuid.UUID) (C, bool) {
	return m.registry.Channel(id)
}

func (m *Manager[C]) Users() []*session.Session {
	return m.registry.Sessions()
}

func (m *Manager[C]) Channels() []C {
	return m.registry.Channels()
}

// ChangeConnectionState records st on the Session of c. It only updates
// bookkeeping; transports that must adjust to a state change expose their
// own entry point for it.
func (m *Manager[C]) ChangeConnectionState(c C, st protocol.State) error {
	s, ok := m.registry.Get(c)
	if !ok {
		return fmt.Errorf("change state to %s: %w", st, session.ErrUnregisteredChannel)
	}
	s.SetConnectionState(st)
	return nil
}

// SetClientVersion records v on the Session of c.
func (m *Manager[C]) SetClientVersion(c C, v protocol.ClientVersion) error {
	s, ok := m.registry.Get(c)
	if !ok {
		return fmt.Errorf("set client version %s: %w", v, session.ErrUnregisteredChannel)
	}
	s.SetClientVersion(v)
	return nil
}
