// Package session tracks the protocol state of connected peers and maps
// connections to them.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/google/uuid"
)

// ErrUnregisteredChannel is returned when an operation needs the Session of
// a connection that has not been registered.
var ErrUnregisteredChannel = errors.New("channel has no registered session")

// Session is the protocol state of one connected peer. The identifier is
// fixed at construction; state and version may change as the handshake
// and login progress.
type Session struct {
	id uuid.UUID

	mu      sync.RWMutex
	name    string
	state   protocol.State
	version protocol.ClientVersion
}

// Option configures a Session at construction.
type Option func(*Session)

func WithName(name string) Option {
	return func(s *Session) { s.name = name }
}

func WithState(state protocol.State) Option {
	return func(s *Session) { s.state = state }
}

func WithClientVersion(v protocol.ClientVersion) Option {
	return func(s *Session) { s.version = v }
}

// New creates a Session in the handshaking state. A nil id is replaced
// with a random one.
func New(id uuid.UUID, opts ...Option) *Session {
	if id == uuid.Nil {
		id = uuid.New()
	}
	s := &Session{id: id, state: protocol.Handshaking}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) ConnectionState() protocol.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) SetConnectionState(state protocol.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) ClientVersion() protocol.ClientVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Session) SetClientVersion(v protocol.ClientVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

// Snapshot is a point-in-time copy of a Session's fields.
type Snapshot struct {
	ID      uuid.UUID
	Name    string
	State   protocol.State
	Version protocol.ClientVersion
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{ID: s.id, Name: s.name, State: s.state, Version: s.version}
}

func (s *Session) String() string {
	snap := s.Snapshot()
	name := snap.Name
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("%s(%s) %s %s", name, snap.ID, snap.State, snap.Version)
}
