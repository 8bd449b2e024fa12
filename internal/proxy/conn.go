package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Versifine/packetgate/internal/hook"
	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
)

// Conn is one proxied client together with its backend connection. The
// pointer is the channel handle sessions are registered under.
type Conn struct {
	client  net.Conn
	backend net.Conn

	fromClient  *bufio.Reader
	fromBackend *bufio.Reader
	toClient    packetWriter
	toBackend   packetWriter

	threshold atomic.Int32
	version   atomic.Int32
	user      atomic.Pointer[session.Session]
	closeOnce sync.Once
	closeErr  error
}

// packetWriter serializes writes in one direction.
type packetWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewConn(client, backend net.Conn) *Conn {
	c := &Conn{
		client:      client,
		backend:     backend,
		fromClient:  bufio.NewReader(client),
		fromBackend: bufio.NewReader(backend),
		toClient:    packetWriter{w: bufio.NewWriter(client)},
		toBackend:   packetWriter{w: bufio.NewWriter(backend)},
	}
	c.threshold.Store(-1)
	return c
}

func (c *Conn) RemoteAddr() string {
	return c.client.RemoteAddr().String()
}

// Threshold is the compression threshold, negative while compression is
// off.
func (c *Conn) Threshold() int {
	return int(c.threshold.Load())
}

// ClientVersion is the version the client announced in its handshake.
func (c *Conn) ClientVersion() protocol.ClientVersion {
	return protocol.ClientVersion(c.version.Load())
}

func (c *Conn) setClientVersion(v protocol.ClientVersion) {
	c.version.Store(int32(v))
}

// Session returns the Session last registered for c, or nil.
func (c *Conn) Session() *session.Session {
	return c.user.Load()
}

func (c *Conn) writer(dir hook.Direction) *packetWriter {
	if dir == hook.Serverbound {
		return &c.toBackend
	}
	return &c.toClient
}

func (c *Conn) write(dir hook.Direction, p *protocol.Packet, flush bool) error {
	pw := c.writer(dir)
	pw.mu.Lock()
	defer pw.mu.Unlock()

	frame, err := protocol.EncodePacket(p, c.Threshold())
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if _, err := pw.w.Write(frame); err != nil {
		return err
	}
	if flush {
		return pw.w.Flush()
	}
	return nil
}

// enableCompression forwards Set Compression to the client uncompressed and
// switches the connection to threshold under the same lock, so no other
// clientbound packet can slip in between.
func (c *Conn) enableCompression(p *protocol.Packet, threshold int) error {
	c.toClient.mu.Lock()
	defer c.toClient.mu.Unlock()

	if err := protocol.WritePacket(c.toClient.w, p, -1); err != nil {
		return err
	}
	c.threshold.Store(int32(threshold))
	return c.toClient.w.Flush()
}

// disableCompression turns compression off in both directions. It holds
// both writer locks so a packet being written is framed entirely before or
// entirely after the switch.
func (c *Conn) disableCompression() {
	c.toClient.mu.Lock()
	defer c.toClient.mu.Unlock()
	c.toBackend.mu.Lock()
	defer c.toBackend.mu.Unlock()

	c.threshold.Store(-1)
}

// Flush pushes out buffered writes in both directions.
func (c *Conn) Flush() error {
	var errs []error
	for _, pw := range []*packetWriter{&c.toClient, &c.toBackend} {
		pw.mu.Lock()
		errs = append(errs, pw.w.Flush())
		pw.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Close closes both sides. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.client.Close(), c.backend.Close())
	})
	return c.closeErr
}

func (c *Conn) String() string {
	return c.client.RemoteAddr().String() + "->" + c.backend.RemoteAddr().String()
}
