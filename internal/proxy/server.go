// Package proxy 负责 TCP 连接管理与数据包转发
// 它是 dispatch 层的传输实现：每个客户端连接对应一个 Conn
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/Versifine/packetgate/internal/dispatch"
	"github.com/Versifine/packetgate/internal/hook"
	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	listenerAddr  string
	backendAddr   string
	manager       *dispatch.Manager[*Conn]
	injector      *Injector
	maxPacketSize int
}

type ServerOption func(*Server)

// WithMaxPacketSize caps the frames the relay accepts from either side.
func WithMaxPacketSize(n int) ServerOption {
	return func(s *Server) { s.maxPacketSize = n }
}

func NewServer(listenerAddr, backendAddr string, manager *dispatch.Manager[*Conn], injector *Injector, opts ...ServerOption) *Server {
	s := &Server{
		listenerAddr:  listenerAddr,
		backendAddr:   backendAddr,
		manager:       manager,
		injector:      injector,
		maxPacketSize: protocol.MaxPacketSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Manager() *dispatch.Manager[*Conn] {
	return s.manager
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("Starting proxy server", "listenerAddr", s.listenerAddr, "backendAddr", s.backendAddr)
	netListener, err := net.Listen("tcp", s.listenerAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, netListener)
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	defer l.Close()
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down proxy server")
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				slog.Info("Proxy server stopped")
				return nil
			}
			slog.Error("Error accepting connection", "error", err)
			return err
		}
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, clientConn net.Conn) {
	setNoDelay(clientConn)

	var d net.Dialer
	backendConn, err := d.DialContext(ctx, "tcp", s.backendAddr)
	if err != nil {
		slog.Error("Error connecting to backend", "error", err)
		clientConn.Close()
		return
	}
	setNoDelay(backendConn)

	conn := NewConn(clientConn, backendConn)
	s.manager.RegisterSession(conn, session.New(uuid.Nil))
	slog.Info("Proxying connection", "client", conn.RemoteAddr(), "backend", s.backendAddr)

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = conn.Close() })
	defer stop()

	g.Go(func() error {
		defer conn.Close()
		if err := s.relay(conn, conn.fromClient, hook.Serverbound); err != nil {
			return fmt.Errorf("relay C->S: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer conn.Close()
		if err := s.relay(conn, conn.fromBackend, hook.Clientbound); err != nil {
			return fmt.Errorf("relay S->C: %w", err)
		}
		return nil
	})
	err = g.Wait()
	if err != nil {
		slog.Error("Error relaying packets", "client", conn.RemoteAddr(), "error", err)
	}

	if sess := conn.Session(); sess != nil {
		sess.SetConnectionState(protocol.Closed)
	}
	s.manager.Unregister(conn)
	s.injector.publishClosed(conn, err)
	slog.Info("Connection closed", "client", conn.RemoteAddr())
}

// relay copies packets arriving on src to the opposite side of c, feeding
// each one through the state tracker first. Output is flushed whenever the
// input has no more buffered data.
func (s *Server) relay(c *Conn, src *bufio.Reader, dir hook.Direction) error {
	for {
		frame, err := protocol.ReadFrame(src, s.maxPacketSize)
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return err
		}
		packet, err := protocol.DecodeFrame(frame, c.Threshold())
		if err != nil {
			return err
		}

		var handled bool
		if dir == hook.Serverbound {
			err = s.trackServerbound(c, packet)
		} else {
			handled, err = s.trackClientbound(c, packet)
		}
		if err != nil {
			return err
		}
		if handled {
			continue
		}
		if err := c.write(dir, packet, src.Buffered() == 0); err != nil {
			if isClosed(err) {
				return nil
			}
			return err
		}
		if dir == hook.Clientbound {
			if err := s.afterClientbound(c, packet); err != nil {
				return err
			}
		}
	}
}

// trackServerbound follows the client through handshake, login and
// configuration.
func (s *Server) trackServerbound(c *Conn, packet *protocol.Packet) error {
	sess := c.Session()
	if sess == nil {
		return nil
	}
	v := c.ClientVersion()
	switch sess.ConnectionState() {
	case protocol.Handshaking:
		if packet.ID != protocol.C2SHandshake {
			return nil
		}
		handshake, err := protocol.ParseHandshake(bytes.NewReader(packet.Payload))
		if err != nil {
			return fmt.Errorf("parse handshake: %w", err)
		}
		slog.Info("Handshake", "ProtocolVersion", handshake.ProtocolVersion, "ServerAddress", handshake.ServerAddress, "ServerPort", handshake.ServerPort, "NextState", handshake.NextState)
		next, ok := protocol.StateAfterHandshake(handshake.NextState)
		if !ok {
			return fmt.Errorf("handshake next state %d: %w", handshake.NextState, protocol.ErrUnknownState)
		}
		c.setClientVersion(handshake.ClientVersion())
		if err := s.manager.SetClientVersion(c, handshake.ClientVersion()); err != nil {
			return err
		}
		return s.injector.ChangeConnectionState(c, next)

	case protocol.Login:
		switch packet.ID {
		case protocol.C2SLoginStart:
			loginStart, err := protocol.ParseLoginStart(bytes.NewReader(packet.Payload), v)
			if err != nil {
				return fmt.Errorf("parse login start: %w", err)
			}
			slog.Info("Login start", "username", loginStart.Username, "uuid", loginStart.PlayerID())
			s.manager.RegisterSession(c, session.New(loginStart.PlayerID(),
				session.WithName(loginStart.Username),
				session.WithState(protocol.Login),
				session.WithClientVersion(v),
			))
		case protocol.C2SLoginAcknowledged:
			if protocol.HasConfigurationPhase(v) {
				return s.injector.ChangeConnectionState(c, protocol.Configuration)
			}
		}

	case protocol.Configuration:
		if packet.ID == protocol.ConfigFinishID(v) {
			return s.injector.ChangeConnectionState(c, protocol.Play)
		}
	}
	return nil
}

// trackClientbound reports whether it already forwarded packet itself.
func (s *Server) trackClientbound(c *Conn, packet *protocol.Packet) (bool, error) {
	sess := c.Session()
	if sess == nil || sess.ConnectionState() != protocol.Login {
		return false, nil
	}
	switch packet.ID {
	case protocol.S2CSetCompression:
		threshold, err := protocol.ParseSetCompression(bytes.NewReader(packet.Payload))
		if err != nil {
			return false, fmt.Errorf("parse set compression: %w", err)
		}
		slog.Debug("Compression enabled", "session", sess.ID(), "threshold", threshold)
		return true, c.enableCompression(packet, threshold)
	case protocol.S2CLoginSuccess:
		return false, s.trackLoginSuccess(c, sess, packet)
	}
	return false, nil
}

// trackLoginSuccess registers c under the identity the backend assigned.
// It replaces the one claimed in Login Start, which older clients do not
// send at all.
func (s *Server) trackLoginSuccess(c *Conn, sess *session.Session, packet *protocol.Packet) error {
	v := c.ClientVersion()
	success, err := protocol.ParseLoginSuccess(bytes.NewReader(packet.Payload), v)
	if err != nil {
		return fmt.Errorf("parse login success: %w", err)
	}
	slog.Info("Login success", "uuid", success.UUID, "username", success.Username, "properties", len(success.Properties))
	if success.UUID == sess.ID() && success.Username == sess.Name() {
		return nil
	}
	s.manager.RegisterSession(c, session.New(success.UUID,
		session.WithName(success.Username),
		session.WithState(protocol.Login),
		session.WithClientVersion(v),
	))
	return nil
}

func (s *Server) afterClientbound(c *Conn, packet *protocol.Packet) error {
	sess := c.Session()
	if sess == nil || sess.ConnectionState() != protocol.Login || packet.ID != protocol.S2CLoginSuccess {
		return nil
	}
	if protocol.HasConfigurationPhase(c.ClientVersion()) {
		// the client's Login Acknowledged moves it on
		return nil
	}
	slog.Info("Switching to Play state", "session", sess)
	return s.injector.ChangeConnectionState(c, protocol.Play)
}

func setNoDelay(c net.Conn) {
	// Disable Nagle's algorithm for lower latency
	if tcpConn, ok := c.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF)
}
