package session

import (
	"testing"
	"time"

	"github.com/pis-platform/pis/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestTimersFromBeforeTouchAreDropped(t *testing.T) {
	logging.Discard()
	warned := 0
	s := New("token", Options{
		Timeout:   time.Hour,
		OnWarning: func(time.Duration) { warned++ },
	})
	t.Cleanup(s.Close)

	s.mu.Lock()
	old := s.gen
	s.mu.Unlock()
	s.Touch()

	// callbacks that fired just before the Touch took the lock
	s.warn(old)
	s.expire(old)
	signedOut, _ := s.SignedOut()
	assert.False(t, signedOut)
	assert.Zero(t, warned)

	s.mu.Lock()
	current := s.gen
	s.mu.Unlock()
	s.warn(current)
	assert.Equal(t, 1, warned)
	s.expire(current)
	signedOut, reason := s.SignedOut()
	assert.True(t, signedOut)
	assert.Equal(t, ReasonInactive, reason)
}
