// Package session tracks the signed-in bearer token and signs the user out
// after a period of inactivity or when the record store rejects the token.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pis-platform/pis/internal/client"
	"github.com/pis-platform/pis/internal/logging"
)

// Defaults for the inactivity timer
const (
	DefaultTimeout    = 60 * time.Minute
	DefaultWarnBefore = 2 * time.Minute
)

// ReasonInactive is the sign-out reason for the inactivity timeout
const ReasonInactive client.Reason = "inactive"

// ErrSignedOut is returned for token requests after sign-out
var ErrSignedOut = errors.New("signed out")

// Options configures a Session. Zero durations use the defaults.
type Options struct {
	Timeout    time.Duration
	WarnBefore time.Duration
	// OnWarning runs once per idle period, WarnBefore ahead of the timeout
	OnWarning func(remaining time.Duration)
	// OnSignOut runs exactly once
	OnSignOut func(reason client.Reason)
}

// Session holds one user's token. It implements client.TokenSource.
type Session struct {
	mu        sync.Mutex
	token     string
	opts      Options
	warnTimer *time.Timer
	outTimer  *time.Timer
	gen       uint64
	signedOut bool
	reason    client.Reason
}

// New starts the inactivity timer for token
func New(token string, opts Options) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.WarnBefore <= 0 || opts.WarnBefore >= opts.Timeout {
		opts.WarnBefore = min(DefaultWarnBefore, opts.Timeout/2)
	}
	s := &Session{token: token, opts: opts}
	s.Touch()
	return s
}

// Token implements client.TokenSource
func (s *Session) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signedOut {
		return "", ErrSignedOut
	}
	return s.token, nil
}

// Touch records user activity and restarts the inactivity timer
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signedOut {
		return
	}
	s.stopTimers()
	s.gen++
	gen := s.gen
	warnAfter := s.opts.Timeout - s.opts.WarnBefore
	s.warnTimer = time.AfterFunc(warnAfter, func() { s.warn(gen) })
	s.outTimer = time.AfterFunc(s.opts.Timeout, func() { s.expire(gen) })
}

// SignOut ends the session. Later calls are no-ops.
func (s *Session) SignOut(reason client.Reason) {
	s.signOut(reason, 0)
}

func (s *Session) expire(gen uint64) {
	s.signOut(ReasonInactive, gen)
}

// signOut ends the session. A non-zero gen is the Touch that started the
// calling timer; the call is dropped when activity has restarted the timers
// since.
func (s *Session) signOut(reason client.Reason, gen uint64) {
	s.mu.Lock()
	if s.signedOut || (gen != 0 && gen != s.gen) {
		s.mu.Unlock()
		return
	}
	s.signedOut = true
	s.reason = reason
	s.token = ""
	s.stopTimers()
	onSignOut := s.opts.OnSignOut
	s.mu.Unlock()

	logging.Logger.Infof("Signed out: %s", reason)
	if onSignOut != nil {
		onSignOut(reason)
	}
}

// SignedOut reports whether the session has ended and why
func (s *Session) SignedOut() (bool, client.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedOut, s.reason
}

// Attach routes the client's 401 responses to SignOut and makes the
// session the client's token source.
func (s *Session) Attach(c *client.Client) {
	c.Tokens = s
	c.OnUnauthorized = s.SignOut
}

// Close stops the timers without signing out
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimers()
	s.gen++
}

func (s *Session) warn(gen uint64) {
	s.mu.Lock()
	if s.signedOut || gen != s.gen {
		s.mu.Unlock()
		return
	}
	onWarning := s.opts.OnWarning
	remaining := s.opts.WarnBefore
	s.mu.Unlock()

	if onWarning != nil {
		onWarning(remaining)
	}
}

func (s *Session) stopTimers() {
	if s.warnTimer != nil {
		s.warnTimer.Stop()
	}
	if s.outTimer != nil {
		s.outTimer.Stop()
	}
}
