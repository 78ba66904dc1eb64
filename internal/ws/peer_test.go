package ws

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carcall/signal-server-go/internal/signaling"
)

func TestPeerSend(t *testing.T) {
	t.Run("queues events up to the buffer size", func(t *testing.T) {
		peer := NewPeer(nil)

		for i := 0; i < sendBufferSize; i++ {
			require.NoError(t, peer.Send(signaling.Event{Type: fmt.Sprintf("event-%d", i)}))
		}

		assert.Error(t, peer.Send(signaling.Event{Type: "overflow"}), "full buffer drops instead of blocking")
	})

	t.Run("fails after close", func(t *testing.T) {
		peer := NewPeer(nil)
		peer.Close()

		assert.Error(t, peer.Send(signaling.Event{Type: "late"}))
	})
}

func TestPeerClose(t *testing.T) {
	peer := NewPeer(nil)

	// Eviction and the read loop may both call Close.
	peer.Close()
	peer.Close()

	select {
	case <-peer.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestPeerIDsAreUnique(t *testing.T) {
	a := NewPeer(nil)
	b := NewPeer(nil)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
