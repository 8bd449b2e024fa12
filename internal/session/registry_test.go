package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConn struct{ name string }

func TestRegistryGetUnregistered(t *testing.T) {
	r := NewRegistry[*testConn](4)
	s, ok := r.Get(&testConn{"ghost"})
	assert.False(t, ok)
	assert.Nil(t, s)

	_, ok = r.Channel(uuid.New())
	assert.False(t, ok)
}

func TestRegistryReadYourWrites(t *testing.T) {
	r := NewRegistry[*testConn](4)
	c := &testConn{"a"}
	s := New(uuid.New(), WithName("Alex"))

	assert.Nil(t, r.Put(c, s))

	got, ok := r.Get(c)
	require.True(t, ok)
	assert.Same(t, s, got)

	ch, ok := r.Channel(s.ID())
	require.True(t, ok)
	assert.Same(t, c, ch)
}

func TestRegistryChannelsAreIndependent(t *testing.T) {
	r := NewRegistry[*testConn](1)
	c1, c2 := &testConn{"1"}, &testConn{"2"}
	s2 := New(uuid.Nil)
	r.Put(c2, s2)

	r.Put(c1, New(uuid.Nil))
	r.Put(c1, New(uuid.Nil))

	got, ok := r.Get(c2)
	require.True(t, ok)
	assert.Same(t, s2, got)
}

func TestRegistryReplaceIsWholesale(t *testing.T) {
	r := NewRegistry[*testConn](4)
	c := &testConn{"a"}
	s1 := New(uuid.New(), WithState(protocol.Play), WithClientVersion(protocol.V1_21))
	s2 := New(uuid.New())

	r.Put(c, s1)
	replaced := r.Put(c, s2)
	assert.Same(t, s1, replaced)

	got, ok := r.Get(c)
	require.True(t, ok)
	assert.Same(t, s2, got)
	assert.Equal(t, protocol.Handshaking, got.ConnectionState())
	assert.Equal(t, protocol.Unknown, got.ClientVersion())

	_, ok = r.Channel(s1.ID())
	assert.False(t, ok, "stale id should no longer resolve")
	ch, ok := r.Channel(s2.ID())
	require.True(t, ok)
	assert.Same(t, c, ch)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryForget(t *testing.T) {
	r := NewRegistry[*testConn](4)
	c := &testConn{"a"}
	s := New(uuid.Nil)
	r.Put(c, s)

	got, ok := r.Forget(c)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.Get(c)
	assert.False(t, ok)
	_, ok = r.Channel(s.ID())
	assert.False(t, ok)

	_, ok = r.Forget(c)
	assert.False(t, ok)
}

func TestRegistryConcurrentRegistration(t *testing.T) {
	const n = 500
	r := NewRegistry[*testConn](0)
	conns := make([]*testConn, n)
	sessions := make([]*Session, n)
	for i := range conns {
		conns[i] = &testConn{fmt.Sprintf("conn-%d", i)}
		sessions[i] = New(uuid.New(), WithName(fmt.Sprintf("player-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Put(conns[i], sessions[i])
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, r.Len())
	for i := 0; i < n; i++ {
		got, ok := r.Get(conns[i])
		require.True(t, ok, "conn %d missing", i)
		assert.Same(t, sessions[i], got)
		ch, ok := r.Channel(sessions[i].ID())
		require.True(t, ok)
		assert.Same(t, conns[i], ch)
	}
}

func TestRegistrySameChannelLastWriteWins(t *testing.T) {
	r := NewRegistry[*testConn](4)
	c := &testConn{"a"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Put(c, New(uuid.Nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
	s, ok := r.Get(c)
	require.True(t, ok)
	ch, ok := r.Channel(s.ID())
	require.True(t, ok)
	assert.Same(t, c, ch)
}

func TestRegistrySnapshotsUnderMutation(t *testing.T) {
	r := NewRegistry[*testConn](8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			c := &testConn{fmt.Sprint(i)}
			r.Put(c, New(uuid.Nil))
			if i%3 == 0 {
				r.Forget(c)
			}
		}
	}()
	for {
		select {
		case <-done:
			assert.Len(t, r.Sessions(), r.Len())
			assert.Len(t, r.Channels(), r.Len())
			return
		default:
			for _, e := range r.Entries() {
				assert.NotNil(t, e.Session)
			}
		}
	}
}
