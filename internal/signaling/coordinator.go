package signaling

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carcall/signal-server-go/internal/audit"
	apperrors "github.com/carcall/signal-server-go/internal/errors"
	"github.com/carcall/signal-server-go/internal/model"
)

// Coordinator is the single owner of the presence registry and the call
// session table. Transport goroutines call into it concurrently; every
// mutation of shared state happens under mu. Collaborator calls (store
// writes, push sends, broadcasts) always run outside the mutex, and any
// handler that released the mutex around a collaborator call
// re-validates the state it depends on after re-acquiring it — another
// event may have completed a conflicting transition in between.
type Coordinator struct {
	mu       sync.Mutex
	reg      *registry
	sessions map[string]*callSession // owner conn ID -> live attempt

	history   HistoryStore
	users     UserStore
	push      PushSender
	broadcast Broadcaster

	ringTimeout time.Duration
	now         func() time.Time
}

func NewCoordinator(
	history HistoryStore,
	users UserStore,
	push PushSender,
	broadcast Broadcaster,
	ringTimeout time.Duration,
) *Coordinator {
	return &Coordinator{
		reg:         newRegistry(),
		sessions:    make(map[string]*callSession),
		history:     history,
		users:       users,
		push:        push,
		broadcast:   broadcast,
		ringTimeout: ringTimeout,
		now:         time.Now,
	}
}

// Join binds conn to identity. An older live connection for the same
// identity is evicted: closed, unmapped, and stripped of any call
// attempt it owned (eviction is not a call outcome, so no history).
func (c *Coordinator) Join(ctx context.Context, conn Conn, identity string) {
	if identity == "" {
		log.Warn().Str("connId", conn.ID()).Msg("join with empty identity ignored")
		return
	}

	c.mu.Lock()
	evicted := c.reg.install(identity, conn)
	if evicted != nil {
		if sess := c.sessions[evicted.ID()]; sess != nil {
			sess.stopTimer()
			delete(c.sessions, evicted.ID())
		}
	}
	c.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		audit.Log(audit.Event{
			Type:     audit.EventConnectionEvicted,
			Identity: identity,
			ConnID:   evicted.ID(),
			Details:  map[string]interface{}{"replacedBy": conn.ID()},
		})
		c.broadcast.Broadcast(PresenceChanged(identity, false))
	}
	c.broadcast.Broadcast(PresenceChanged(identity, true))

	if err := c.users.SetOnline(ctx, identity, true); err != nil {
		log.Warn().Err(err).Str("identity", identity).Msg("failed to persist online status")
	}

	audit.Log(audit.Event{Type: audit.EventIdentityJoined, Identity: identity, ConnID: conn.ID()})
	log.Info().Str("identity", identity).Str("connId", conn.ID()).Msg("identity joined")
}

// Call initiates a call attempt from conn's identity to the receiver.
// Delivery policy: send over the receiver's live connection if present,
// and independently attempt a push when a token is on file (both may
// fire; presence can be stale). Neither available means the attempt
// never had a delivery path: record missed immediately, no timer.
func (c *Coordinator) Call(ctx context.Context, conn Conn, req CallRequest) {
	media := req.MediaKind
	if !media.Valid() {
		media = model.MediaAudio
	}

	c.mu.Lock()
	caller := c.reg.identity(conn.ID())
	switch {
	case caller == "" || req.ReceiverIdentity == "":
		c.mu.Unlock()
		c.fail(conn, apperrors.InvalidRequest())
		return
	case caller == req.ReceiverIdentity:
		c.mu.Unlock()
		c.fail(conn, apperrors.SelfCall())
		return
	case c.sessions[conn.ID()] != nil:
		c.mu.Unlock()
		c.fail(conn, apperrors.AlreadyInCall())
		return
	}
	c.mu.Unlock()

	receiver, err := c.users.FindByIdentity(ctx, req.ReceiverIdentity)
	if err != nil {
		log.Error().Err(err).Str("receiver", req.ReceiverIdentity).Msg("receiver lookup failed")
		c.fail(conn, apperrors.Internal("Server error"))
		return
	}
	if receiver == nil {
		c.fail(conn, apperrors.UserNotFound())
		return
	}

	callerName := caller
	if callerUser, err := c.users.FindByIdentity(ctx, caller); err == nil && callerUser != nil {
		callerName = callerUser.Name()
	}

	pushToken := ""
	if receiver.PushToken != nil {
		pushToken = *receiver.PushToken
	}

	// The store round trips above are suspension points: the caller may
	// have been evicted or started another attempt meanwhile.
	c.mu.Lock()
	if c.reg.identity(conn.ID()) != caller {
		c.mu.Unlock()
		return
	}
	if c.sessions[conn.ID()] != nil {
		c.mu.Unlock()
		c.fail(conn, apperrors.AlreadyInCall())
		return
	}

	receiverConn := c.reg.conn(req.ReceiverIdentity)
	if receiverConn == nil && pushToken == "" {
		c.mu.Unlock()
		c.record(ctx, caller, req.ReceiverIdentity, media, model.OutcomeMissed, 0)
		c.fail(conn, apperrors.ReceiverUnreachable())
		return
	}

	sess := newCallSession(conn.ID(), caller, req.ReceiverIdentity, media, c.now())
	sess.timer = time.AfterFunc(c.ringTimeout, func() { c.ringExpired(conn, sess) })
	c.sessions[conn.ID()] = sess
	c.mu.Unlock()

	log.Info().
		Str("caller", caller).
		Str("receiver", req.ReceiverIdentity).
		Str("mediaKind", string(media)).
		Bool("receiverOnline", receiverConn != nil).
		Bool("pushToken", pushToken != "").
		Msg("call attempt started")

	if receiverConn != nil {
		c.send(receiverConn, newEvent(EventIncomingCall, IncomingCallPayload{
			Signal:         req.Signal,
			CallerIdentity: caller,
			MediaKind:      media,
		}))
	}

	if pushToken != "" {
		c.pushNotify(ctx, pushToken, req.ReceiverIdentity, CallNotification{
			CallerIdentity: caller,
			CallerName:     callerName,
			MediaKind:      media,
			Signal:         req.Signal,
		})
	}
}

// Answer moves the referenced caller's attempt from ringing to answered
// and relays the answer payload. A stale answer (attempt already timed
// out, rejected, or torn down) just tells the answering party the call
// ended; whatever transition fired first already wrote the record.
func (c *Coordinator) Answer(ctx context.Context, conn Conn, req AnswerRequest) {
	c.mu.Lock()
	callerConn := c.reg.conn(req.CallerIdentity)
	var sess *callSession
	if callerConn != nil {
		sess = c.sessions[callerConn.ID()]
	}
	if sess == nil || sess.answered {
		c.mu.Unlock()
		c.send(conn, newEvent(EventCallEnded, struct{}{}))
		return
	}
	sess.markAnswered(c.now())
	c.mu.Unlock()

	c.send(callerConn, newEvent(EventCallAccepted, CallAcceptedPayload{Signal: req.Signal}))
	log.Info().Str("caller", sess.caller).Str("receiver", sess.receiver).Msg("call answered")
}

// Reject terminates the referenced caller's attempt with outcome
// rejected. Tolerated after answer to absorb out-of-order rejects; the
// outcome is still rejected with duration 0.
func (c *Coordinator) Reject(ctx context.Context, conn Conn, req RejectRequest) {
	c.mu.Lock()
	callerConn := c.reg.conn(req.CallerIdentity)
	var sess *callSession
	if callerConn != nil {
		sess = c.sessions[callerConn.ID()]
	}
	if sess == nil {
		c.mu.Unlock()
		c.send(conn, newEvent(EventCallEnded, struct{}{}))
		return
	}
	sess.stopTimer()
	delete(c.sessions, callerConn.ID())
	c.mu.Unlock()

	c.record(ctx, sess.caller, sess.receiver, sess.media, model.OutcomeRejected, 0)
	c.send(callerConn, newEvent(EventCallRejected, struct{}{}))
}

// End is an explicit hang-up from either party. An answered attempt
// completes with its floored duration; a still-ringing one is a
// caller-initiated abort and leaves no history (the receiver never had
// the call brought to their attention).
func (c *Coordinator) End(ctx context.Context, conn Conn, req EndRequest) {
	c.mu.Lock()
	ownerConn := conn
	sess := c.sessions[conn.ID()]
	if sess == nil && req.CounterpartIdentity != "" {
		if cc := c.reg.conn(req.CounterpartIdentity); cc != nil {
			if s := c.sessions[cc.ID()]; s != nil {
				sess, ownerConn = s, cc
			}
		}
	}
	if sess != nil {
		sess.stopTimer()
		delete(c.sessions, ownerConn.ID())
	}
	var counterpartConn Conn
	if req.CounterpartIdentity != "" {
		counterpartConn = c.reg.conn(req.CounterpartIdentity)
	}
	now := c.now()
	c.mu.Unlock()

	if sess != nil && sess.answered {
		c.record(ctx, sess.caller, sess.receiver, sess.media, model.OutcomeCompleted, sess.duration(now))
	}
	if counterpartConn != nil {
		c.send(counterpartConn, newEvent(EventCallEnded, struct{}{}))
	}
}

// Disconnect tears down conn: presence mappings, last-seen persistence,
// and an implicit End of any attempt the connection owned.
func (c *Coordinator) Disconnect(ctx context.Context, conn Conn) {
	c.mu.Lock()
	identity := c.reg.removeConn(conn)
	sess := c.sessions[conn.ID()]
	var counterpartConn Conn
	if sess != nil {
		sess.stopTimer()
		delete(c.sessions, conn.ID())
		counterpartConn = c.reg.conn(sess.receiver)
	}
	now := c.now()
	c.mu.Unlock()

	if identity != "" {
		if err := c.users.SetOffline(ctx, identity, now); err != nil {
			log.Warn().Err(err).Str("identity", identity).Msg("failed to persist offline status")
		}
		c.broadcast.Broadcast(PresenceChanged(identity, false))
		audit.Log(audit.Event{Type: audit.EventIdentityLeft, Identity: identity, ConnID: conn.ID()})
		log.Info().Str("identity", identity).Str("connId", conn.ID()).Msg("identity left")
	}

	if sess != nil {
		if sess.answered {
			c.record(ctx, sess.caller, sess.receiver, sess.media, model.OutcomeCompleted, sess.duration(now))
		}
		if counterpartConn != nil {
			c.send(counterpartConn, newEvent(EventCallEnded, struct{}{}))
		}
	}
}

// Relay forwards a mid-call signaling payload verbatim. Payloads for
// offline destinations are dropped; they are only meaningful to a live
// negotiation.
func (c *Coordinator) Relay(conn Conn, req RelayRequest) {
	c.mu.Lock()
	from := c.reg.identity(conn.ID())
	dest := c.reg.conn(req.DestinationIdentity)
	c.mu.Unlock()

	if dest == nil {
		log.Debug().
			Str("from", from).
			Str("destination", req.DestinationIdentity).
			Msg("dropping signal for offline destination")
		return
	}
	c.send(dest, newEvent(EventSignal, SignalPayload{Payload: req.Payload, FromIdentity: from}))
}

// OnlineCount reports how many identities currently hold a live
// connection.
func (c *Coordinator) OnlineCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.onlineCount()
}

// ActiveCalls reports how many call attempts are currently live.
func (c *Coordinator) ActiveCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// ringExpired fires when the ring timer lapses. Idempotent: Stop()
// cannot reach a callback that already fired and is waiting on the
// mutex, so the callback must prove its session is still the installed
// one — a stale timer from a finished attempt must never touch a newer
// attempt on the same connection.
func (c *Coordinator) ringExpired(conn Conn, sess *callSession) {
	c.mu.Lock()
	if c.sessions[conn.ID()] != sess || sess.answered {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, conn.ID())
	c.mu.Unlock()

	log.Info().Str("caller", sess.caller).Str("receiver", sess.receiver).Msg("call timed out without answer")
	c.record(context.Background(), sess.caller, sess.receiver, sess.media, model.OutcomeMissed, 0)
	c.fail(conn, apperrors.NoAnswer())
}

// record appends one history row for a terminal outcome. Failures are
// logged and never roll back the in-memory transition: the call already
// happened or didn't, and persistence is at-most-once, best-effort.
func (c *Coordinator) record(ctx context.Context, caller, receiver string, media model.MediaKind, outcome model.CallOutcome, duration int) {
	if _, err := c.history.Append(ctx, model.CreateCallRecordParams{
		CallerIdentity:   caller,
		ReceiverIdentity: receiver,
		MediaKind:        media,
		Outcome:          outcome,
		DurationSeconds:  duration,
	}); err != nil {
		log.Error().Err(err).
			Str("caller", caller).
			Str("receiver", receiver).
			Str("outcome", string(outcome)).
			Msg("failed to append call history")
	}

	audit.Log(audit.Event{
		Type:         audit.EventCallOutcome,
		Identity:     caller,
		PeerIdentity: receiver,
		Details: map[string]interface{}{
			"outcome":  string(outcome),
			"duration": duration,
		},
	})
}

func (c *Coordinator) pushNotify(ctx context.Context, token, receiverIdentity string, n CallNotification) {
	result, err := c.push.SendCallNotification(ctx, token, n)
	if err != nil {
		log.Warn().Err(err).Str("receiver", receiverIdentity).Msg("push failover failed")
		return
	}
	if result.InvalidateToken {
		if err := c.users.ClearPushToken(ctx, receiverIdentity); err != nil {
			log.Warn().Err(err).Str("receiver", receiverIdentity).Msg("failed to clear push token")
		}
		audit.Log(audit.Event{Type: audit.EventPushInvalidated, Identity: receiverIdentity})
	}
}

func (c *Coordinator) fail(conn Conn, appErr *apperrors.AppError) {
	c.send(conn, newEvent(EventCallFailed, CallFailedPayload{
		Reason: appErr.Message,
		Code:   string(appErr.Code),
	}))
}

func (c *Coordinator) send(conn Conn, event Event) {
	if err := conn.Send(event); err != nil {
		log.Debug().Err(err).Str("connId", conn.ID()).Str("eventType", event.Type).Msg("failed to send event")
	}
}
