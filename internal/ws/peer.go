package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/carcall/signal-server-go/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 100
)

// Peer wraps one websocket connection. It implements signaling.Conn;
// the coordinator references it but never owns it — the read loop in
// the handler and the write pump here control its lifetime.
type Peer struct {
	id     string
	conn   *websocket.Conn
	events chan signaling.Event
	done   chan struct{}
	once   sync.Once
}

func NewPeer(conn *websocket.Conn) *Peer {
	return &Peer{
		id:     uuid.NewString(),
		conn:   conn,
		events: make(chan signaling.Event, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (p *Peer) ID() string {
	return p.id
}

// Send queues an event for delivery. Slow consumers get their events
// dropped rather than blocking the coordinator.
func (p *Peer) Send(event signaling.Event) error {
	select {
	case <-p.done:
		return fmt.Errorf("connection %s closed", p.id)
	default:
	}

	select {
	case p.events <- event:
		return nil
	default:
		return fmt.Errorf("connection %s event buffer full, dropping %s", p.id, event.Type)
	}
}

// Close signals the write pump to shut the connection down. Safe to
// call more than once (eviction and the read loop both call it).
func (p *Peer) Close() {
	p.once.Do(func() { close(p.done) })
}

// Done is closed when the peer is shutting down.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// WritePump drains queued events to the socket and keeps the
// connection alive with pings. Runs in its own goroutine; owns all
// writes to the underlying connection.
func (p *Peer) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case <-p.done:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case event := <-p.events:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(event); err != nil {
				log.Debug().Err(err).Str("peerId", p.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ConfigureRead applies the read-side limits and pong handling. Called
// once by the handler before entering its read loop.
func (p *Peer) ConfigureRead() {
	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadEvent blocks until the next inbound frame arrives.
func (p *Peer) ReadEvent() (signaling.Event, error) {
	var event signaling.Event
	err := p.conn.ReadJSON(&event)
	return event, err
}
