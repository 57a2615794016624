package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pis-platform/pis/internal/client"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/session"
	"github.com/pis-platform/pis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInactivityWarningThenSignOut(t *testing.T) {
	logging.Discard()
	var warned atomic.Int32
	reasons := make(chan client.Reason, 2)

	s := session.New("token", session.Options{
		Timeout:    120 * time.Millisecond,
		WarnBefore: 60 * time.Millisecond,
		OnWarning:  func(time.Duration) { warned.Add(1) },
		OnSignOut:  func(r client.Reason) { reasons <- r },
	})
	t.Cleanup(s.Close)

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token", tok)

	select {
	case r := <-reasons:
		assert.Equal(t, session.ReasonInactive, r)
	case <-time.After(2 * time.Second):
		t.Fatal("session never timed out")
	}
	assert.EqualValues(t, 1, warned.Load())

	_, err = s.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrSignedOut)

	s.SignOut(client.ReasonExpired)
	assert.Len(t, reasons, 0, "sign-out runs once")
}

func TestTouchPostponesTimeout(t *testing.T) {
	logging.Discard()
	s := session.New("token", session.Options{Timeout: 150 * time.Millisecond})
	t.Cleanup(s.Close)

	for i := 0; i < 4; i++ {
		time.Sleep(50 * time.Millisecond)
		s.Touch()
	}
	out, _ := s.SignedOut()
	assert.False(t, out)
}

func TestUnauthorizedForcesSignOut(t *testing.T) {
	logging.Discard()
	api := testutil.StartAPI(t)
	testutil.SeedProperty(t, api.DB, "P100")

	expired := api.Signer.Token(t, "Dana Lee", -time.Hour)
	s := session.New(expired, session.Options{})
	t.Cleanup(s.Close)
	c := client.New(api.URL, nil)
	s.Attach(c)

	_, err := c.List(context.Background(), records.KindSuite, "P100")
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	out, reason := s.SignedOut()
	assert.True(t, out)
	assert.Equal(t, client.ReasonExpired, reason)

	_, err = c.List(context.Background(), records.KindSuite, "P100")
	assert.ErrorIs(t, err, session.ErrSignedOut)
}
