package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carcall/signal-server-go/internal/model"
)

func TestCallSessionDuration(t *testing.T) {
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("unanswered session has zero duration", func(t *testing.T) {
		sess := newCallSession("conn-1", "12가3456", "34나5678", model.MediaAudio, base)

		assert.Equal(t, 0, sess.duration(base.Add(45*time.Second)))
	})

	t.Run("floors to whole seconds", func(t *testing.T) {
		sess := newCallSession("conn-1", "12가3456", "34나5678", model.MediaAudio, base)
		sess.markAnswered(base)

		assert.Equal(t, 0, sess.duration(base.Add(999*time.Millisecond)))
		assert.Equal(t, 1, sess.duration(base.Add(1999*time.Millisecond)))
		assert.Equal(t, 61, sess.duration(base.Add(61*time.Second+500*time.Millisecond)))
	})

	t.Run("never negative on clock skew", func(t *testing.T) {
		sess := newCallSession("conn-1", "12가3456", "34나5678", model.MediaAudio, base)
		sess.markAnswered(base)

		assert.Equal(t, 0, sess.duration(base.Add(-3*time.Second)))
	})
}

func TestCallSessionStopTimer(t *testing.T) {
	sess := newCallSession("conn-1", "12가3456", "34나5678", model.MediaVideo, time.Now())

	// Safe with no timer installed.
	sess.stopTimer()

	fired := make(chan struct{}, 1)
	sess.timer = time.AfterFunc(10*time.Millisecond, func() { fired <- struct{}{} })
	sess.stopTimer()
	assert.Nil(t, sess.timer)

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}
