package client

import (
	"context"
	"sync"

	"github.com/me/sweeply/pkg/model"
)

// AuthHandler receives auth notifications from the HTTP layer. The
// session layer implements it; the transport never imports the session
// package, which is the whole point of the indirection.
type AuthHandler interface {
	// TokenRefreshed is called after a successful token refresh, with
	// the freshly persisted pair.
	TokenRefreshed(ctx context.Context, pair model.TokenPair)
	// RefreshFailed is called when the refresh flow gives up: the
	// refresh token was missing or rejected and both tokens were
	// cleared. The subscriber should treat the session as logged out.
	RefreshFailed(ctx context.Context)
}

// AuthEvents is a single-subscriber registration slot. There is exactly
// one session controller per process, so last-writer-wins is fine; the
// explicit Subscribe/unsubscribe shape keeps that contract visible.
type AuthEvents struct {
	mu      sync.Mutex
	handler AuthHandler
}

// NewAuthEvents creates an event hub with no subscriber. Notifications
// before the first Subscribe are dropped.
func NewAuthEvents() *AuthEvents {
	return &AuthEvents{}
}

// Subscribe registers h as the sole subscriber, replacing any prior
// one, and returns a func that unregisters it (unless another
// subscriber has replaced it since).
func (e *AuthEvents) Subscribe(h AuthHandler) (unsubscribe func()) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		if e.handler == h {
			e.handler = nil
		}
		e.mu.Unlock()
	}
}

func (e *AuthEvents) tokenRefreshed(ctx context.Context, pair model.TokenPair) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h.TokenRefreshed(ctx, pair)
	}
}

func (e *AuthEvents) refreshFailed(ctx context.Context) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h.RefreshFailed(ctx)
	}
}
