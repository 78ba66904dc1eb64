package signaling

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn that records everything sent to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []Event
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

func (c *fakeConn) lastEvent() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return Event{}, false
	}
	return c.events[len(c.events)-1], true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegistryInstall(t *testing.T) {
	t.Run("maps identity and connection both ways", func(t *testing.T) {
		r := newRegistry()
		conn := newFakeConn("conn-1")

		evicted := r.install("12가3456", conn)

		assert.Nil(t, evicted)
		assert.Equal(t, conn, r.conn("12가3456"))
		assert.Equal(t, "12가3456", r.identity("conn-1"))
		assert.Equal(t, 1, r.onlineCount())
	})

	t.Run("evicts previous connection for same identity", func(t *testing.T) {
		r := newRegistry()
		old := newFakeConn("conn-old")
		replacement := newFakeConn("conn-new")

		r.install("12가3456", old)
		evicted := r.install("12가3456", replacement)

		require.NotNil(t, evicted)
		assert.Equal(t, "conn-old", evicted.ID())
		assert.Equal(t, replacement, r.conn("12가3456"))
		assert.Equal(t, "12가3456", r.identity("conn-new"))
		assert.Empty(t, r.identity("conn-old"))
		assert.Equal(t, 1, r.onlineCount())
	})

	t.Run("re-install of same connection is a no-op", func(t *testing.T) {
		r := newRegistry()
		conn := newFakeConn("conn-1")

		r.install("12가3456", conn)
		evicted := r.install("12가3456", conn)

		assert.Nil(t, evicted)
		assert.Equal(t, 1, r.onlineCount())
	})

	t.Run("connection rejoining as new identity drops its old mapping", func(t *testing.T) {
		r := newRegistry()
		conn := newFakeConn("conn-1")

		r.install("12가3456", conn)
		evicted := r.install("34나5678", conn)

		assert.Nil(t, evicted)
		assert.Nil(t, r.conn("12가3456"))
		assert.Equal(t, conn, r.conn("34나5678"))
		assert.Equal(t, "34나5678", r.identity("conn-1"))
		assert.Equal(t, 1, r.onlineCount())
	})
}

func TestRegistryRemoveConn(t *testing.T) {
	t.Run("removes both mappings and returns identity", func(t *testing.T) {
		r := newRegistry()
		conn := newFakeConn("conn-1")
		r.install("12가3456", conn)

		identity := r.removeConn(conn)

		assert.Equal(t, "12가3456", identity)
		assert.Nil(t, r.conn("12가3456"))
		assert.Empty(t, r.identity("conn-1"))
		assert.Equal(t, 0, r.onlineCount())
	})

	t.Run("unmapped connection returns empty identity", func(t *testing.T) {
		r := newRegistry()

		assert.Empty(t, r.removeConn(newFakeConn("ghost")))
	})

	t.Run("evicted connection cannot remove its successor", func(t *testing.T) {
		r := newRegistry()
		old := newFakeConn("conn-old")
		replacement := newFakeConn("conn-new")
		r.install("12가3456", old)
		r.install("12가3456", replacement)

		// Late disconnect of the evicted connection must leave the new
		// mapping intact.
		identity := r.removeConn(old)

		assert.Empty(t, identity)
		assert.Equal(t, replacement, r.conn("12가3456"))
		assert.Equal(t, 1, r.onlineCount())
	})
}
