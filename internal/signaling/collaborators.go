package signaling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carcall/signal-server-go/internal/model"
)

// HistoryStore records terminal call outcomes. Satisfied by
// repository.CallHistoryRepository.
type HistoryStore interface {
	Append(ctx context.Context, params model.CreateCallRecordParams) (*model.CallRecord, error)
}

// UserStore is the slice of the external user store the coordinator
// needs: push address lookup and presence persistence. Satisfied by
// repository.UserRepository.
type UserStore interface {
	FindByIdentity(ctx context.Context, identity string) (*model.User, error)
	SetOnline(ctx context.Context, identity string, online bool) error
	SetOffline(ctx context.Context, identity string, lastSeen time.Time) error
	ClearPushToken(ctx context.Context, identity string) error
}

// CallNotification is the payload handed to the push channel when a
// receiver may be reachable out-of-band.
type CallNotification struct {
	CallerIdentity string
	CallerName     string
	MediaKind      model.MediaKind
	Signal         json.RawMessage
}

// PushResult reports a push attempt. InvalidateToken means the address
// is permanently dead and should be removed from the user store.
type PushResult struct {
	Delivered       bool
	InvalidateToken bool
}

// PushSender delivers an incoming-call notification to a push address.
type PushSender interface {
	SendCallNotification(ctx context.Context, token string, n CallNotification) (PushResult, error)
}

// Broadcaster fans an event out to every connected client (across all
// server instances).
type Broadcaster interface {
	Broadcast(event Event)
}
