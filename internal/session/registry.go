package session

import (
	"hash/maphash"
	"sync"

	"github.com/google/uuid"
)

const DefaultShards = 32

// Registry maps connections to Sessions and Session ids back to
// connections. C is the transport's connection handle; it must keep the
// same identity for as long as the connection lives.
//
// Writes lock only the shard that owns the connection, so registrations
// for different connections rarely contend.
type Registry[C comparable] struct {
	seed   maphash.Seed
	shards []shard[C]
	ids    sync.Map // uuid.UUID -> C
}

type shard[C comparable] struct {
	mu       sync.RWMutex
	sessions map[C]*Session
}

// Entry pairs a connection with its Session.
type Entry[C comparable] struct {
	Channel C
	Session *Session
}

func NewRegistry[C comparable](shards int) *Registry[C] {
	if shards <= 0 {
		shards = DefaultShards
	}
	r := &Registry[C]{
		seed:   maphash.MakeSeed(),
		shards: make([]shard[C], shards),
	}
	for i := range r.shards {
		r.shards[i].sessions = make(map[C]*Session)
	}
	return r
}

func (r *Registry[C]) shardFor(c C) *shard[C] {
	h := maphash.Comparable(r.seed, c)
	return &r.shards[h%uint64(len(r.shards))]
}

// Put registers s for c, replacing any Session already registered there.
// It returns the replaced Session, if any.
func (r *Registry[C]) Put(c C, s *Session) (replaced *Session) {
	sh := r.shardFor(c)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	replaced = sh.sessions[c]
	sh.sessions[c] = s
	r.ids.Store(s.ID(), c)
	if replaced != nil && replaced.ID() != s.ID() {
		r.ids.CompareAndDelete(replaced.ID(), c)
	}
	return replaced
}

// Get returns the Session registered for c. The boolean is false when c
// has not been registered yet.
func (r *Registry[C]) Get(c C) (*Session, bool) {
	sh := r.shardFor(c)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[c]
	return s, ok
}

// Channel returns the connection a Session id is registered on.
func (r *Registry[C]) Channel(id uuid.UUID) (C, bool) {
	v, ok := r.ids.Load(id)
	if !ok {
		var zero C
		return zero, false
	}
	return v.(C), true
}

// Forget removes c and returns the Session that was registered for it.
func (r *Registry[C]) Forget(c C) (*Session, bool) {
	sh := r.shardFor(c)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[c]
	if !ok {
		return nil, false
	}
	delete(sh.sessions, c)
	r.ids.CompareAndDelete(s.ID(), c)
	return s, true
}

// Entries returns a snapshot of every registered connection. Shards are
// copied one at a time, so concurrent writers may or may not be reflected.
func (r *Registry[C]) Entries() []Entry[C] {
	out := make([]Entry[C], 0, r.Len())
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for c, s := range sh.sessions {
			out = append(out, Entry[C]{Channel: c, Session: s})
		}
		sh.mu.RUnlock()
	}
	return out
}

func (r *Registry[C]) Sessions() []*Session {
	entries := r.Entries()
	out := make([]*Session, len(entries))
	for i, e := range entries {
		out[i] = e.Session
	}
	return out
}

func (r *Registry[C]) Channels() []C {
	entries := r.Entries()
	out := make([]C, len(entries))
	for i, e := range entries {
		out[i] = e.Channel
	}
	return out
}

func (r *Registry[C]) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
