package signaling

import (
	"encoding/json"

	"github.com/carcall/signal-server-go/internal/model"
)

// Event is the wire envelope for every frame sent to a client.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound event types.
const (
	EventIncomingCall    = "incoming_call"
	EventCallAccepted    = "call_accepted"
	EventCallRejected    = "call_rejected"
	EventCallEnded       = "call_ended"
	EventCallFailed      = "call_failed"
	EventPresenceChanged = "presence_changed"
	EventSignal          = "signal"
)

// Inbound event types.
const (
	EventJoin   = "join"
	EventCall   = "call"
	EventAnswer = "answer"
	EventReject = "reject"
	EventEnd    = "end"
	EventRelay  = "signal"
)

type IncomingCallPayload struct {
	Signal         json.RawMessage `json:"signal"`
	CallerIdentity string          `json:"callerIdentity"`
	MediaKind      model.MediaKind `json:"mediaKind"`
}

type CallAcceptedPayload struct {
	Signal json.RawMessage `json:"signal"`
}

type CallFailedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

type PresenceChangedPayload struct {
	Identity string `json:"identity"`
	Online   bool   `json:"online"`
}

type SignalPayload struct {
	Payload      json.RawMessage `json:"payload"`
	FromIdentity string          `json:"fromIdentity"`
}

// Client request payloads.

type JoinRequest struct {
	Identity string `json:"identity"`
}

type CallRequest struct {
	ReceiverIdentity string          `json:"receiverIdentity"`
	MediaKind        model.MediaKind `json:"mediaKind"`
	Signal           json.RawMessage `json:"signal"`
}

type AnswerRequest struct {
	CallerIdentity string          `json:"callerIdentity"`
	Signal         json.RawMessage `json:"signal"`
}

type RejectRequest struct {
	CallerIdentity string `json:"callerIdentity"`
}

type EndRequest struct {
	CounterpartIdentity string `json:"counterpartIdentity"`
}

type RelayRequest struct {
	DestinationIdentity string          `json:"destinationIdentity"`
	Payload             json.RawMessage `json:"payload"`
}

func newEvent(eventType string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: eventType, Data: data}
}

// PresenceChanged builds the broadcast event for an identity going
// online or offline.
func PresenceChanged(identity string, online bool) Event {
	return newEvent(EventPresenceChanged, PresenceChangedPayload{
		Identity: identity,
		Online:   online,
	})
}
