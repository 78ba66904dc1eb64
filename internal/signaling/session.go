package signaling

import (
	"time"

	"github.com/carcall/signal-server-go/internal/model"
)

// callSession is one call attempt, owned by the caller's connection.
// Lives from initiation until a terminal transition or the owning
// connection's disconnect. Mutated only under the Coordinator's mutex.
type callSession struct {
	ownerConnID string
	caller      string
	receiver    string
	media       model.MediaKind
	createdAt   time.Time
	answered    bool
	answeredAt  time.Time
	timer       *time.Timer
}

func newCallSession(ownerConnID, caller, receiver string, media model.MediaKind, createdAt time.Time) *callSession {
	return &callSession{
		ownerConnID: ownerConnID,
		caller:      caller,
		receiver:    receiver,
		media:       media,
		createdAt:   createdAt,
	}
}

func (s *callSession) markAnswered(now time.Time) {
	s.answered = true
	s.answeredAt = now
	s.stopTimer()
}

// stopTimer cancels the pending ring timeout. Safe to call on every
// transition; the fired callback re-checks the session table anyway.
func (s *callSession) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// duration returns the whole seconds between answer and now, floored
// and never negative. A call answered and ended in the same instant
// yields 0.
func (s *callSession) duration(now time.Time) int {
	if !s.answered {
		return 0
	}
	d := now.Sub(s.answeredAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
