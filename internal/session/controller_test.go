package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/me/sweeply/internal/client"
	"github.com/me/sweeply/internal/secrets"
	"github.com/me/sweeply/pkg/model"
)

// fakeAPI is a current-user probe with a switchable outcome.
type fakeAPI struct {
	user  *model.User
	err   error
	calls atomic.Int64
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*model.User, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func pair() model.TokenPair {
	return model.TokenPair{AccessToken: "a1", RefreshToken: "r1"}
}

func TestController_LoginSuccess(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{user: &model.User{ID: "u1", Email: "ada@example.com"}}
	store := secrets.NewMemStore()
	var invalidations atomic.Int64

	c := New(api, store, client.NewAuthEvents(), func(ctx context.Context) {
		invalidations.Add(1)
	}, nil)

	if !c.OnLogin(ctx, pair()) {
		t.Fatal("OnLogin = false, want true")
	}
	if !c.Authorised() {
		t.Error("not authorised after successful login")
	}
	if got, _ := store.Get(ctx, secrets.KeyAccessToken); got != "a1" {
		t.Errorf("access token = %q, want a1", got)
	}
	if got, _ := store.Get(ctx, secrets.KeyRefreshToken); got != "r1" {
		t.Errorf("refresh token = %q, want r1", got)
	}
	if c.User() == nil || c.User().ID != "u1" {
		t.Errorf("user = %+v", c.User())
	}
	if invalidations.Load() != 1 {
		t.Errorf("cache invalidated %d times, want 1", invalidations.Load())
	}
}

func TestController_LoginValidationFails(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{err: errors.New("401")}
	store := secrets.NewMemStore()
	c := New(api, store, client.NewAuthEvents(), nil, nil)

	if c.OnLogin(ctx, pair()) {
		t.Fatal("OnLogin = true, want false")
	}
	if c.Authorised() {
		t.Error("authorised after failed validation")
	}
	// Failed validation logs out, which clears the just-persisted pair.
	if got, _ := store.Get(ctx, secrets.KeyAccessToken); got != "" {
		t.Errorf("access token = %q, want cleared", got)
	}
}

func TestController_LoginIncompletePair(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{user: &model.User{ID: "u1"}}
	c := New(api, secrets.NewMemStore(), client.NewAuthEvents(), nil, nil)

	if c.OnLogin(ctx, model.TokenPair{AccessToken: "only-access"}) {
		t.Error("OnLogin accepted a pair without a refresh token")
	}
	if api.calls.Load() != 0 {
		t.Error("validation probe issued for an incomplete pair")
	}
}

func TestController_StartWithStoredToken(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{user: &model.User{ID: "u1"}}
	store := secrets.NewMemStore()
	_ = store.Set(ctx, secrets.KeyAccessToken, "a1")
	_ = store.Set(ctx, secrets.KeyRefreshToken, "r1")

	c := New(api, store, client.NewAuthEvents(), nil, nil)
	if c.Loaded() {
		t.Fatal("loaded before Start")
	}
	c.Start(ctx)

	if !c.Loaded() {
		t.Error("not loaded after Start")
	}
	if !c.Authorised() {
		t.Error("not authorised with a valid stored token")
	}
	if api.calls.Load() != 1 {
		t.Errorf("probe called %d times, want 1", api.calls.Load())
	}
}

func TestController_StartWithoutToken(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{user: &model.User{ID: "u1"}}
	c := New(api, secrets.NewMemStore(), client.NewAuthEvents(), nil, nil)
	c.Start(ctx)

	if !c.Loaded() {
		t.Error("loaded must become true even without a stored token")
	}
	if c.Authorised() {
		t.Error("authorised without any token")
	}
	if api.calls.Load() != 0 {
		t.Error("probe issued without a refresh token")
	}
}

func TestController_StartStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := secrets.NewMemStore()
	store.FailGet = errors.New("keychain unavailable")

	c := New(&fakeAPI{}, store, client.NewAuthEvents(), nil, nil)
	c.Start(ctx)

	// Storage errors are swallowed: still loaded, just not authorised.
	if !c.Loaded() {
		t.Error("not loaded after storage failure")
	}
	if c.Authorised() {
		t.Error("authorised despite storage failure")
	}
}

func TestController_LogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	c := New(&fakeAPI{user: &model.User{ID: "u1"}}, secrets.NewMemStore(), client.NewAuthEvents(), nil, nil)

	c.OnLogout(ctx)
	c.OnLogout(ctx)
	if c.Authorised() {
		t.Error("authorised after logout")
	}
}

func TestController_RefreshEvents(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{user: &model.User{ID: "u1"}}
	store := secrets.NewMemStore()
	events := client.NewAuthEvents()

	c := New(api, store, events, nil, nil)
	c.Start(ctx)
	if !c.OnLogin(ctx, pair()) {
		t.Fatal("login failed")
	}

	// A failed refresh flow logs the session out through the hub.
	c.RefreshFailed(ctx)
	if c.Authorised() {
		t.Error("authorised after refresh failure")
	}
	if got, _ := store.Get(ctx, secrets.KeyRefreshToken); got != "" {
		t.Errorf("refresh token = %q, want cleared", got)
	}

	// A successful refresh re-authorises.
	c.TokenRefreshed(ctx, model.TokenPair{AccessToken: "a2", RefreshToken: "r2"})
	if !c.Authorised() {
		t.Error("not authorised after token refresh notification")
	}
}
