package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	redisclient "github.com/carcall/signal-server-go/internal/redis"
	"github.com/carcall/signal-server-go/internal/signaling"
)

// Hub tracks every locally connected peer and fans broadcast events out
// to all of them. Broadcasts go through a redis pubsub channel so that
// presence changes reach peers on every server instance, not just the
// one that observed the change.
type Hub struct {
	redis  *redisclient.Client
	mu     sync.RWMutex
	peers  map[*Peer]bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(redisClient *redisclient.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		redis:  redisClient,
		peers:  make(map[*Peer]bool),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.subscribeLoop()
	return h
}

func (h *Hub) Register(peer *Peer) {
	h.mu.Lock()
	h.peers[peer] = true
	count := len(h.peers)
	h.mu.Unlock()

	log.Debug().Str("peerId", peer.ID()).Int("peerCount", count).Msg("peer registered")
}

func (h *Hub) Unregister(peer *Peer) {
	h.mu.Lock()
	delete(h.peers, peer)
	count := len(h.peers)
	h.mu.Unlock()

	log.Debug().Str("peerId", peer.ID()).Int("peerCount", count).Msg("peer unregistered")
}

// Broadcast publishes event to the shared channel; the subscribe loop
// on each instance delivers it to local peers. If the publish fails the
// event is still delivered locally so a single node keeps working
// through a redis outage.
func (h *Hub) Broadcast(event signaling.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast event")
		return
	}

	if err := h.redis.Publish(h.ctx, redisclient.SignalChannel, data).Err(); err != nil {
		log.Warn().Err(err).Msg("redis publish failed, delivering locally only")
		h.deliverLocal(event)
	}
}

func (h *Hub) subscribeLoop() {
	pubsub := h.redis.Subscribe(h.ctx, redisclient.SignalChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event signaling.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal broadcast event")
				continue
			}

			h.deliverLocal(event)
		}
	}
}

func (h *Hub) deliverLocal(event signaling.Event) {
	h.mu.RLock()
	peers := make([]*Peer, 0, len(h.peers))
	for peer := range h.peers {
		peers = append(peers, peer)
	}
	h.mu.RUnlock()

	for _, peer := range peers {
		if err := peer.Send(event); err != nil {
			log.Warn().Err(err).Str("peerId", peer.ID()).Msg("broadcast delivery failed")
		}
	}
}

func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for peer := range h.peers {
		peer.Close()
	}
	h.peers = make(map[*Peer]bool)
}

func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
