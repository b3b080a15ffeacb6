package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"heymelody/src/auth"
	"heymelody/src/catalog"
)

func testStore(t *testing.T) *auth.Store {
	t.Helper()
	store, err := catalog.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return auth.NewStore(store.DB())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	user, err := store.Register(ctx, "Melody@Example.com", "Melody", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "melody@example.com" {
		t.Errorf("expected the email to be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "hunter2" || user.PasswordHash == "" {
		t.Errorf("expected the password to be hashed")
	}

	if _, err := store.Register(ctx, "melody@example.com", "Other", "x"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	got, err := store.Authenticate(ctx, "melody@example.com", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated as the wrong user")
	}
	if _, err := store.Authenticate(ctx, "melody@example.com", "wrong"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for a bad password, got %v", err)
	}
	if _, err := store.Authenticate(ctx, "nobody@example.com", "x"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for an unknown email, got %v", err)
	}
}

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	user, err := store.EnsureUser(ctx, "oauth@example.com", "From Provider")
	if err != nil {
		t.Fatal(err)
	}
	again, err := store.EnsureUser(ctx, "oauth@example.com", "Changed Name")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != user.ID {
		t.Errorf("expected the same account on repeat sign-in")
	}
	// Provider accounts have no password to sign in with.
	if _, err := store.Authenticate(ctx, "oauth@example.com", ""); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokens(t *testing.T) {
	tokens, err := auth.NewTokens("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	user := auth.User{ID: "user-1"}
	token, err := tokens.Issue(user)
	if err != nil {
		t.Fatal(err)
	}
	userID, err := tokens.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}

	if _, err := tokens.Verify("garbage"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for garbage, got %v", err)
	}

	otherSecret, err := auth.NewTokens("other", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := otherSecret.Verify(token); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for a foreign signature, got %v", err)
	}

	// A non-positive TTL falls back to the default rather than issuing dead
	// tokens.
	fallback, err := auth.NewTokens("secret", -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err = fallback.Issue(user)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Verify(token); err != nil {
		t.Errorf("expected the default TTL to apply, got %v", err)
	}

	if _, err := auth.NewTokens("", time.Hour); err == nil {
		t.Errorf("expected an empty secret to be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	tokens, err := auth.NewTokens("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	user, err := store.Register(ctx, "melody@example.com", "Melody", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	token, err := tokens.Issue(user)
	if err != nil {
		t.Fatal(err)
	}

	var gotUser auth.User
	handler := auth.Middleware(store, tokens)(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		gotUser, _ = auth.UserFromContext(req.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser.ID != user.ID {
		t.Errorf("expected the user in the request context")
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected the session cookie to authenticate, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestOAuthFlow(t *testing.T) {
	store := testStore(t)

	provider := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/token":
			if req.FormValue("code") != "good-code" {
				http.Error(res, "bad code", http.StatusBadRequest)
				return
			}
			json.NewEncoder(res).Encode(map[string]string{"access_token": "provider-token"})
		case "/userinfo":
			if req.Header.Get("Authorization") != "Bearer provider-token" {
				http.Error(res, "bad token", http.StatusUnauthorized)
				return
			}
			json.NewEncoder(res).Encode(map[string]string{
				"email": "oauth@example.com",
				"name":  "From Provider",
			})
		default:
			http.NotFound(res, req)
		}
	}))
	defer provider.Close()

	flow := &auth.OAuthFlow{
		Provider: auth.OAuthProvider{
			Name:        "testprov",
			ClientID:    "client",
			AuthURL:     provider.URL + "/authorize",
			TokenURL:    provider.URL + "/token",
			UserInfoURL: provider.URL + "/userinfo",
			Scopes:      []string{"email"},
		},
		RedirectURL: "http://melody.example/data/auth/callback",
		Store:       store,
	}

	rec := httptest.NewRecorder()
	flow.Redirect(rec, httptest.NewRequest("GET", "/data/auth/oauth", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected a redirect, got %d", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := location.Query().Get("state")
	if state == "" {
		t.Fatalf("expected a state parameter in %q", location)
	}

	callback := httptest.NewRequest("GET", "/data/auth/callback?code=good-code&state="+state, nil)
	user, err := flow.Callback(callback)
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "oauth@example.com" {
		t.Errorf("unexpected user: %q", user.Email)
	}

	// The state is single use.
	if _, err := flow.Callback(callback); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected replayed state to be rejected, got %v", err)
	}
	forged := httptest.NewRequest("GET", "/data/auth/callback?code=good-code&state=forged", nil)
	if _, err := flow.Callback(forged); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected a forged state to be rejected, got %v", err)
	}
}
