package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"heymelody/src/auth"
	"heymelody/src/catalog"
	"heymelody/src/handler/api"
	"heymelody/src/mediastore"
	"heymelody/src/player"
)

func newTestWeb(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := catalog.Open(ctx, "sqlite3", filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	media, err := mediastore.NewStore(filepath.Join(dir, "media"), "http://melody.example/media")
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewTokens("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	session := player.NewSession()
	binding, err := player.Bind(session, player.NewStubElement(), filepath.Join(dir, "volume.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { binding.Close() })

	a := api.New(session, binding, nil, store, media, auth.NewStore(store.DB()), tokens, nil)
	return New("release", "test", "/", a)
}

func TestPage(t *testing.T) {
	web := newTestWeb(t)
	rec := httptest.NewRecorder()
	web.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Hey Melody") {
		t.Errorf("expected the page title in the response")
	}
	if !strings.Contains(body, "app.js") || !strings.Contains(body, "style.css") {
		t.Errorf("expected asset references in the page")
	}
}

func TestStaticAssets(t *testing.T) {
	web := newTestWeb(t)
	for _, tc := range []struct {
		asset       string
		contentType string
	}{
		{"app.js", "javascript"},
		{"style.css", "text/css"},
	} {
		rec := httptest.NewRecorder()
		web.ServeHTTP(rec, httptest.NewRequest("GET", "/static/"+tc.asset, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.asset, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, tc.contentType) {
			t.Errorf("%s: unexpected content type %q", tc.asset, ct)
		}
		// Minified assets have their comments and indentation stripped.
		if strings.Contains(rec.Body.String(), "\n\t") {
			t.Errorf("%s: expected the asset to be minified", tc.asset)
		}
	}

	rec := httptest.NewRecorder()
	web.ServeHTTP(rec, httptest.NewRequest("GET", "/static/nope.js", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown asset, got %d", rec.Code)
	}
}
