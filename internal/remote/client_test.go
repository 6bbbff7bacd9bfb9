package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	return c
}

func TestFetchApproved(t *testing.T) {
	var gotQuery atomic.Value
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode([]*catalog.Game{
			{ID: "g-1", Name: "First"},
			{ID: "g-2", Name: "Second"},
		})
	}))

	games, err := c.FetchApproved(context.Background(), 40, 20)
	if err != nil {
		t.Fatalf("FetchApproved() failed: %v", err)
	}
	if len(games) != 2 || games[0].ID != "g-1" {
		t.Errorf("FetchApproved() = %d games, want the served pair", len(games))
	}

	query := gotQuery.Load().(string)
	for _, want := range []string{"approved=true", "offset=40", "limit=20"} {
		if !strings.Contains(query, want) {
			t.Errorf("request query %q missing %q", query, want)
		}
	}
}

func TestFetchUpdatedSince(t *testing.T) {
	since := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var gotQuery atomic.Value
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Get("updated_after"))
		_ = json.NewEncoder(w).Encode([]*catalog.Game{{ID: "g-1", Name: "Changed"}})
	}))

	games, err := c.FetchUpdatedSince(context.Background(), since, 0, 100)
	if err != nil {
		t.Fatalf("FetchUpdatedSince() failed: %v", err)
	}
	if len(games) != 1 {
		t.Errorf("FetchUpdatedSince() = %d games, want 1", len(games))
	}
	if got := gotQuery.Load().(string); got != "2024-06-01T12:00:00Z" {
		t.Errorf("updated_after = %q, want RFC3339 watermark", got)
	}
}

func TestFetchDeletedIDs(t *testing.T) {
	var gotQuery atomic.Value
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode([]string{"g-7", "g-9"})
	}))

	// Unbounded: no deleted_after parameter at all.
	ids, err := c.FetchDeletedIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchDeletedIDs() failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "g-7" {
		t.Errorf("FetchDeletedIDs() = %v, want [g-7 g-9]", ids)
	}
	if query := gotQuery.Load().(string); strings.Contains(query, "deleted_after") {
		t.Errorf("unbounded fetch sent deleted_after: %q", query)
	}

	since := time.Now().UTC()
	if _, err := c.FetchDeletedIDs(context.Background(), &since); err != nil {
		t.Fatalf("bounded FetchDeletedIDs() failed: %v", err)
	}
	if query := gotQuery.Load().(string); !strings.Contains(query, "deleted_after") {
		t.Errorf("bounded fetch missing deleted_after: %q", query)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]*catalog.Game{{ID: "g-1", Name: "Eventually"}})
	}))

	games, err := c.FetchApproved(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("FetchApproved() after retries failed: %v", err)
	}
	if len(games) != 1 {
		t.Errorf("FetchApproved() = %d games, want 1", len(games))
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server saw %d requests, want 3", n)
	}
}

func TestNoRetryOn4xx(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	if _, err := c.FetchApproved(context.Background(), 0, 10); err == nil {
		t.Fatal("FetchApproved() on 400 = nil error, want error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry on client error)", n)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	if _, err := c.FetchApproved(context.Background(), 0, 10); err == nil {
		t.Fatal("FetchApproved() on persistent 500 = nil error, want error")
	}
	if n := atomic.LoadInt32(&calls); n != defaultRetries {
		t.Errorf("server saw %d requests, want %d", n, defaultRetries)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Error("NewClient(nil) = nil error, want error")
	}
	if _, err := NewClient(&ClientConfig{}); err == nil {
		t.Error("NewClient() with empty URL = nil error, want error")
	}
}
