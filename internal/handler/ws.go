package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/carcall/signal-server-go/internal/signaling"
	"github.com/carcall/signal-server-go/internal/ws"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Clients connect from mobile webviews and native apps; identity is
	// established by the join event, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	coordinator *signaling.Coordinator
	hub         *ws.Hub
}

func NewWSHandler(coordinator *signaling.Coordinator, hub *ws.Hub) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		hub:         hub,
	}
}

// GET /v1/ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	peer := ws.NewPeer(conn)
	h.hub.Register(peer)
	go peer.WritePump()

	log.Info().Str("peerId", peer.ID()).Str("remote", r.RemoteAddr).Msg("websocket connected")

	defer func() {
		// The request context is gone once the socket drops; teardown
		// still has to persist last-seen.
		h.coordinator.Disconnect(context.Background(), peer)
		h.hub.Unregister(peer)
		peer.Close()
		log.Info().Str("peerId", peer.ID()).Msg("websocket disconnected")
	}()

	peer.ConfigureRead()

	for {
		event, err := peer.ReadEvent()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("peerId", peer.ID()).Msg("websocket read error")
			}
			return
		}
		h.dispatch(r.Context(), peer, event)
	}
}

// dispatch routes one inbound frame to the coordinator. Events on a
// single connection are processed in arrival order; cross-connection
// ordering is the coordinator's problem.
func (h *WSHandler) dispatch(ctx context.Context, peer *ws.Peer, event signaling.Event) {
	switch event.Type {
	case signaling.EventJoin:
		var req signaling.JoinRequest
		if !decode(peer, event, &req) {
			return
		}
		h.coordinator.Join(ctx, peer, req.Identity)

	case signaling.EventCall:
		var req signaling.CallRequest
		if !decode(peer, event, &req) {
			return
		}
		h.coordinator.Call(ctx, peer, req)

	case signaling.EventAnswer:
		var req signaling.AnswerRequest
		if !decode(peer, event, &req) {
			return
		}
		h.coordinator.Answer(ctx, peer, req)

	case signaling.EventReject:
		var req signaling.RejectRequest
		if !decode(peer, event, &req) {
			return
		}
		h.coordinator.Reject(ctx, peer, req)

	case signaling.EventEnd:
		var req signaling.EndRequest
		if !decode(peer, event, &req) {
			return
		}
		h.coordinator.End(ctx, peer, req)

	case signaling.EventRelay:
		var req signaling.RelayRequest
		if !decode(peer, event, &req) {
			return
		}
		h.coordinator.Relay(peer, req)

	default:
		log.Warn().Str("peerId", peer.ID()).Str("eventType", event.Type).Msg("unknown event type")
	}
}

func decode(peer *ws.Peer, event signaling.Event, dest any) bool {
	if err := json.Unmarshal(event.Data, dest); err != nil {
		log.Warn().Err(err).Str("peerId", peer.ID()).Str("eventType", event.Type).Msg("malformed event payload")
		return false
	}
	return true
}
