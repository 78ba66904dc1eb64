package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventIdentityJoined    EventType = "identity_joined"
	EventIdentityLeft      EventType = "identity_left"
	EventConnectionEvicted EventType = "connection_evicted"
	EventCallOutcome       EventType = "call_outcome"
	EventPushInvalidated   EventType = "push_token_invalidated"
)

type Event struct {
	Type         EventType
	Identity     string
	PeerIdentity string
	ConnID       string
	Details      map[string]interface{}
}

func Log(event Event) {
	logger := log.With().
		Str("audit", "signaling").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Identity != "" {
		logger = logger.With().Str("identity", event.Identity).Logger()
	}
	if event.PeerIdentity != "" {
		logger = logger.With().Str("peer_identity", event.PeerIdentity).Logger()
	}
	if event.ConnID != "" {
		logger = logger.With().Str("conn_id", event.ConnID).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("signaling audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}
