package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/me/sweeply/internal/flight"
	"github.com/me/sweeply/internal/secrets"
	"github.com/me/sweeply/pkg/model"
)

type ctxKey string

const ctxKeyRetried ctxKey = "auth_retried"

// withRetried marks a context so the replayed request is recognizable:
// a request that 401s a second time goes straight to logout instead of
// triggering another refresh.
func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyRetried, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyRetried).(bool)
	return v
}

// authTransport attaches the stored access token to outgoing requests.
// It never overrides an Authorization header the caller set explicitly.
type authTransport struct {
	next  http.RoundTripper
	store secrets.Store
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}

	tok, err := t.store.Get(req.Context(), secrets.KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}

	out := req.Clone(req.Context())
	if tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.next.RoundTrip(out)
}

// statusError reports a refresh request that came back non-2xx. The
// interceptor uses the code to tell auth invalidity (401, log out) from
// transient failure (anything else, propagate without logging out).
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("refresh request failed: status %d", e.Code)
}

// refreshTransport recovers transparently from access-token expiry. On
// a 401 it runs the single-flight refresh exchange, then replays the
// original request exactly once. The refresh endpoint itself and the
// other unauthenticated endpoints are exempt, otherwise refreshing the
// refresh call would loop.
type refreshTransport struct {
	next    http.RoundTripper
	baseURL string
	store   secrets.Store
	events  *AuthEvents
	logger  *slog.Logger
	group   flight.Group[model.TokenPair]
	exempt  map[string]bool
}

// defaultExemptPaths are the endpoints that must never trigger a refresh.
func defaultExemptPaths() map[string]bool {
	return map[string]bool{
		"/auth/login":          true,
		"/auth/refresh_tokens": true,
		"/auth/activate":       true,
	}
}

// isExempt matches by suffix so the check is indifferent to whatever
// prefix (such as /api/v1) the base URL carries.
func (t *refreshTransport) isExempt(path string) bool {
	for p := range t.exempt {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.isExempt(req.URL.Path) {
		return resp, err
	}

	ctx := req.Context()

	// A replayed request that 401s again means the fresh token was
	// rejected too. No second refresh; the session is over.
	if isRetried(ctx) {
		t.logout(ctx)
		return resp, nil
	}

	refreshTok, err := t.store.Get(ctx, secrets.KeyRefreshToken)
	if err != nil || refreshTok == "" {
		t.logout(ctx)
		return resp, nil
	}

	_, err = t.group.Do(ctx, func(ctx context.Context) (model.TokenPair, error) {
		return t.refreshTokens(ctx, refreshTok)
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			// The refresh token itself was rejected.
			t.logout(ctx)
			return resp, nil
		}
		// Transient refresh failure (network, 5xx): propagate, keep the
		// session. The caller may simply retry later.
		drain(resp)
		return nil, fmt.Errorf("token refresh: %w", err)
	}

	// Replay once with the new token. Requests with non-rewindable
	// bodies can't be replayed, so the caller gets the original 401.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	retry := req.Clone(withRetried(ctx))
	retry.Header.Del("Authorization") // stale token; authTransport attaches the new one
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	drain(resp)
	t.logger.Debug("replaying request after token refresh", "method", req.Method, "path", req.URL.Path)
	return t.RoundTrip(retry)
}

// refreshTokens performs the refresh exchange and, on success, persists
// the new pair and notifies the subscriber. It runs inside the
// single-flight group, so any number of concurrent 401s produce exactly
// one exchange, one persist, and one notification.
func (t *refreshTransport) refreshTokens(ctx context.Context, refreshTok string) (model.TokenPair, error) {
	var zero model.TokenPair

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshTok})
	if err != nil {
		return zero, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/auth/refresh_tokens", bytes.NewReader(payload))
	if err != nil {
		return zero, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return zero, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return zero, &statusError{Code: resp.StatusCode, Body: string(body)}
	}

	var envelope struct {
		Data model.TokenPair `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return zero, fmt.Errorf("parse refresh response: %w", err)
	}
	pair := envelope.Data
	if !pair.IsComplete() {
		return zero, fmt.Errorf("refresh response missing tokens")
	}

	if err := t.store.Set(ctx, secrets.KeyAccessToken, pair.AccessToken); err != nil {
		return zero, fmt.Errorf("persist access token: %w", err)
	}
	if err := t.store.Set(ctx, secrets.KeyRefreshToken, pair.RefreshToken); err != nil {
		return zero, fmt.Errorf("persist refresh token: %w", err)
	}

	t.logger.Debug("token pair refreshed")
	t.events.tokenRefreshed(ctx, pair)
	return pair, nil
}

// logout clears both tokens and notifies the subscriber. Storage errors
// here are logged and swallowed: the tokens are already unusable.
func (t *refreshTransport) logout(ctx context.Context) {
	if err := t.store.Delete(ctx, secrets.KeyAccessToken); err != nil {
		t.logger.Warn("clear access token", "error", err)
	}
	if err := t.store.Delete(ctx, secrets.KeyRefreshToken); err != nil {
		t.logger.Warn("clear refresh token", "error", err)
	}
	t.logger.Debug("refresh flow failed, session logged out")
	t.events.refreshFailed(ctx)
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
