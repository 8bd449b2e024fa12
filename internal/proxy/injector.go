package proxy

import (
	"fmt"
	"log/slog"

	"github.com/Versifine/packetgate/internal/event"
	"github.com/Versifine/packetgate/internal/hook"
	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
	"github.com/google/uuid"
)

// Injector puts packets onto proxied connections. Send and Write go to the
// client, Receive goes to the backend as if the client had sent it. The
// normal primitives run the hook chain and publish packet events; the
// silent ones write the packet untouched and unobserved.
type Injector struct {
	hooks *hook.Chain
	bus   *event.Bus
}

func NewInjector(hooks *hook.Chain, bus *event.Bus) *Injector {
	if hooks == nil {
		hooks = hook.NewChain()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Injector{hooks: hooks, bus: bus}
}

func (i *Injector) Bus() *event.Bus {
	return i.bus
}

func (i *Injector) Hooks() *hook.Chain {
	return i.hooks
}

func (i *Injector) SendPacket(c *Conn, p *protocol.Packet) error {
	return i.inject(c, p, hook.Clientbound, true, false)
}

func (i *Injector) SendPacketSilently(c *Conn, p *protocol.Packet) error {
	return i.inject(c, p, hook.Clientbound, true, true)
}

func (i *Injector) WritePacket(c *Conn, p *protocol.Packet) error {
	return i.inject(c, p, hook.Clientbound, false, false)
}

func (i *Injector) WritePacketSilently(c *Conn, p *protocol.Packet) error {
	return i.inject(c, p, hook.Clientbound, false, true)
}

func (i *Injector) ReceivePacket(c *Conn, p *protocol.Packet) error {
	return i.inject(c, p, hook.Serverbound, true, false)
}

func (i *Injector) ReceivePacketSilently(c *Conn, p *protocol.Packet) error {
	return i.inject(c, p, hook.Serverbound, true, true)
}

func (i *Injector) inject(c *Conn, p *protocol.Packet, dir hook.Direction, flush, silent bool) error {
	if p == nil {
		return fmt.Errorf("inject %s: %w", dir, protocol.ErrInvalidPacket)
	}
	s := c.Session()
	if !silent {
		p = i.hooks.Run(s, p.Clone(), dir)
		if p == nil {
			slog.Debug("Packet dropped by hook", "session", s, "direction", dir)
			return nil
		}
	}
	if err := c.write(dir, p, flush); err != nil {
		return fmt.Errorf("inject %s %s: %w", dir, p, err)
	}
	if !silent {
		i.publishPacket(c, s, p, dir, flush)
	}
	return nil
}

func (i *Injector) publishPacket(c *Conn, s *session.Session, p *protocol.Packet, dir hook.Direction, flushed bool) {
	topic := event.EventPacketSend
	if dir == hook.Serverbound {
		topic = event.EventPacketReceive
	}
	if !i.bus.HasSubscribers(topic) {
		return
	}
	evt := &event.PacketEvent{
		Remote:  c.RemoteAddr(),
		Packet:  p.Clone(),
		Flushed: flushed,
	}
	if s != nil {
		evt.Session = s.ID()
		evt.State = s.ConnectionState()
	}
	i.bus.Publish(topic, evt)
}

// ClientVersion reports the version negotiated on c.
func (i *Injector) ClientVersion(c *Conn) protocol.ClientVersion {
	return c.ClientVersion()
}

// UpdateUser binds s to c. A Session registered before it knows the
// client version inherits the one negotiated on the connection.
func (i *Injector) UpdateUser(c *Conn, s *session.Session) {
	if !s.ClientVersion().IsKnown() && c.ClientVersion().IsKnown() {
		s.SetClientVersion(c.ClientVersion())
	}
	c.user.Store(s)
	slog.Debug("User updated", "session", s, "client", c.RemoteAddr())
	i.bus.Publish(event.EventUserUpdated, &event.UserEvent{
		Session: s.ID(),
		Name:    s.Name(),
		Remote:  c.RemoteAddr(),
		Version: s.ClientVersion(),
	})
}

// ChangeConnectionState records st on the Session bound to c and adjusts
// the connection: buffered writes are flushed, a return to handshaking
// turns compression off, and a state-change event is published.
func (i *Injector) ChangeConnectionState(c *Conn, st protocol.State) error {
	s := c.Session()
	if s == nil {
		return fmt.Errorf("change state to %s: %w", st, session.ErrUnregisteredChannel)
	}
	from := s.ConnectionState()
	s.SetConnectionState(st)
	if st == protocol.Handshaking {
		c.disableCompression()
	}
	if err := c.Flush(); err != nil {
		return fmt.Errorf("change state to %s: %w", st, err)
	}
	slog.Debug("Connection state changed", "session", s.ID(), "from", from, "to", st)
	i.bus.Publish(event.EventUserState, &event.StateChangeEvent{
		Session: s.ID(),
		From:    from,
		To:      st,
	})
	return nil
}

func (i *Injector) publishClosed(c *Conn, err error) {
	evt := &event.ConnClosedEvent{Remote: c.RemoteAddr(), Err: err, Session: uuid.Nil}
	if s := c.Session(); s != nil {
		evt.Session = s.ID()
	}
	i.bus.Publish(event.EventConnClosed, evt)
}
