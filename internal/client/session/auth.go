// Package session contains the two state engines at the core of the
// client: AuthEngine owns the access token and the logged-in/out truth,
// Engine owns the current account and selected address. Each engine is a
// single-writer owner: callers may invoke concurrently, mutations are
// serialized internally, and observers get independent streams that start
// from the current state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkotenko/addrhub/internal/broadcast"
	"github.com/dkotenko/addrhub/internal/client/secure"
	"github.com/dkotenko/addrhub/internal/logging"
)

// AuthEngine exclusively owns the access token. Invariant: IsLoggedIn()
// equals "a token is present" at every point where a mutation has
// settled. The token store is written through on every change; when
// persistence fails the in-memory state stays authoritative for the
// current process and the error is reported to the caller.
type AuthEngine struct {
	mu     sync.Mutex
	tokens *secure.TokenStore
	token  string
	ok     bool

	loginState *broadcast.Broadcaster[bool]
	logouts    *broadcast.Broadcaster[struct{}]

	log logging.Logger
}

// NewAuthEngine rehydrates the token from the store, so a login survives
// process restarts.
func NewAuthEngine(tokens *secure.TokenStore, log logging.Logger) *AuthEngine {
	e := &AuthEngine{
		tokens:     tokens,
		loginState: broadcast.NewSticky[bool](),
		logouts:    broadcast.New[struct{}](),
		log:        log,
	}
	e.token, e.ok = tokens.Get()
	e.loginState.Publish(e.ok)
	return e
}

// SetAccessToken stores a new token. The login-state stream emits only
// when the logged-in boolean actually transitions; rotating the token
// while logged in is silent. An empty token is the removal path and
// behaves exactly like RemoveAccessToken.
func (e *AuthEngine) SetAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return e.RemoveAccessToken(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wasLoggedIn := e.ok
	e.token = token
	e.ok = true
	if !wasLoggedIn {
		e.loginState.Publish(true)
	}

	if err := e.tokens.Set(token); err != nil {
		e.log.Error(ctx, "failed to persist access token", "error", err)
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	return nil
}

// RemoveAccessToken logs the user out. On a LoggedIn→LoggedOut transition
// it emits false on the login-state stream and one event on the logout
// stream; calling it while already logged out is a no-op for both streams.
func (e *AuthEngine) RemoveAccessToken(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasLoggedIn := e.ok
	e.token = ""
	e.ok = false
	if wasLoggedIn {
		e.loginState.Publish(false)
		e.logouts.Publish(struct{}{})
	}

	if err := e.tokens.Set(""); err != nil {
		e.log.Error(ctx, "failed to remove persisted access token", "error", err)
		return fmt.Errorf("failed to remove persisted access token: %w", err)
	}
	return nil
}

// AccessToken returns the current token; false when logged out.
func (e *AuthEngine) AccessToken() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token, e.ok
}

// IsLoggedIn reports whether a token is present.
func (e *AuthEngine) IsLoggedIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ok
}

// ObserveLoginState returns a stream that yields the current logged-in
// state immediately, then every subsequent transition in order. Each call
// returns an independent stream; cancelling ctx tears down only that
// stream.
func (e *AuthEngine) ObserveLoginState(ctx context.Context) <-chan bool {
	return e.loginState.Subscribe(ctx)
}

// ObserveLogoutEvents returns a stream that emits once per explicit
// logout. Logins are not reported and past logouts are not replayed.
func (e *AuthEngine) ObserveLogoutEvents(ctx context.Context) <-chan struct{} {
	return e.logouts.Subscribe(ctx)
}
