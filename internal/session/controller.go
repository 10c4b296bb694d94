// Package session owns the client-side authorization state: the single
// source of truth for "is this user logged in". It persists the token
// pair, probes the server for token validity, and reacts to refresh
// notifications from the HTTP layer.
package session

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/me/sweeply/internal/client"
	"github.com/me/sweeply/internal/secrets"
	"github.com/me/sweeply/pkg/model"
)

// API is the probe surface the controller needs from the API client.
type API interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Controller owns session state. All state mutations happen here;
// consumers only ever read Loaded and Authorised booleans.
type Controller struct {
	api    API
	store  secrets.Store
	events *client.AuthEvents
	logger *slog.Logger

	// invalidate flushes all cached server data. Invalidation is total,
	// not selective: login and logout are infrequent enough that
	// refetching everything is simpler than tracking what changed.
	invalidate func(ctx context.Context)

	mu          sync.Mutex
	loaded      bool
	authorised  bool
	user        *model.User
	unsubscribe func()
}

// New creates a session controller. invalidate may be nil.
func New(api API, store secrets.Store, events *client.AuthEvents, invalidate func(ctx context.Context), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		api:        api,
		store:      store,
		events:     events,
		invalidate: invalidate,
		logger:     logger.With("component", "session"),
	}
}

// Start runs the startup sequence: subscribe to auth events, check for
// a persisted refresh token, validate it against the server if present.
// Loaded becomes true exactly once, whatever the outcome; until then
// dependent code must treat auth state as unknown, not logged out.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe == nil {
		c.unsubscribe = c.events.Subscribe(c)
	}
	c.mu.Unlock()

	refreshTok, err := c.store.Get(ctx, secrets.KeyRefreshToken)
	if err != nil {
		c.logger.Warn("read refresh token at startup", "error", err)
	} else if refreshTok != "" {
		c.ValidateToken(ctx)
	}

	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
}

// Close unregisters the controller from the auth event hub.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Loaded reports whether the initial token-presence check has resolved.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Authorised reports whether the last validation or login succeeded
// with no subsequent logout or refresh failure.
func (c *Controller) Authorised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authorised
}

// User returns the account fetched by the last successful validation,
// or nil when logged out.
func (c *Controller) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// OnLogin persists the token pair, optimistically marks the session
// authorised, then validates against the server. On success all cached
// server data is refetched. Returns the validation result; all errors
// along the way surface only as a false return.
func (c *Controller) OnLogin(ctx context.Context, pair model.TokenPair) bool {
	if !pair.IsComplete() {
		c.logger.Warn("login with incomplete token pair rejected")
		return false
	}

	if err := c.store.Set(ctx, secrets.KeyAccessToken, pair.AccessToken); err != nil {
		c.logger.Warn("persist access token", "error", err)
		return false
	}
	if err := c.store.Set(ctx, secrets.KeyRefreshToken, pair.RefreshToken); err != nil {
		c.logger.Warn("persist refresh token", "error", err)
		return false
	}

	c.mu.Lock()
	c.authorised = true
	c.mu.Unlock()

	ok := c.ValidateToken(ctx)
	if ok && c.invalidate != nil {
		c.invalidate(ctx)
	}
	return ok
}

// OnLogout clears session state and both stored tokens. Idempotent.
func (c *Controller) OnLogout(ctx context.Context) {
	c.mu.Lock()
	c.authorised = false
	c.user = nil
	c.mu.Unlock()

	if c.invalidate != nil {
		c.invalidate(ctx)
	}
	if err := c.store.Delete(ctx, secrets.KeyAccessToken); err != nil {
		c.logger.Warn("clear access token", "error", err)
	}
	if err := c.store.Delete(ctx, secrets.KeyRefreshToken); err != nil {
		c.logger.Warn("clear refresh token", "error", err)
	}
	c.logger.Debug("logged out")
}

// ValidateToken probes the current-user endpoint. Any failure, 401 or
// otherwise, logs the session out and returns false; the server is the
// sole authority on token validity.
func (c *Controller) ValidateToken(ctx context.Context) bool {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		c.logger.Debug("token validation failed", "error", err)
		c.OnLogout(ctx)
		return false
	}

	c.mu.Lock()
	c.authorised = true
	c.user = user
	c.mu.Unlock()
	return true
}

// TokenRefreshed implements client.AuthHandler: a successful refresh
// keeps the session authorised.
func (c *Controller) TokenRefreshed(ctx context.Context, pair model.TokenPair) {
	c.mu.Lock()
	c.authorised = true
	c.mu.Unlock()
	c.logger.Debug("session re-authorised after token refresh")
}

// RefreshFailed implements client.AuthHandler: the refresh token was
// missing or rejected, so the session is over. The transport has
// already cleared the tokens; clearing them again is harmless.
func (c *Controller) RefreshFailed(ctx context.Context) {
	c.OnLogout(ctx)
}
