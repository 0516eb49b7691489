package allowlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("://bad", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("users.json", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"github":{"username":"alice","id":10},"discord":{"username":"a","id":1},"role":"admin"},
			{"github":{"username":"carol","id":12},"role":"contributor","dev":true}
		]`)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	users, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].GitHub.ID != 10 || users[0].Role != model.RoleAdmin || users[1].Authorized() {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestFetchErrors(t *testing.T) {
	unconfigured, _ := NewHTTPClient("", testLogger())
	if _, err := unconfigured.Fetch(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	client, _ := NewHTTPClient(failing.URL, testLogger())
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected status error")
	}

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	}))
	defer malformed.Close()
	client, _ = NewHTTPClient(malformed.URL, testLogger())
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
