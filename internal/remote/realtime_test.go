package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

// recordingHandler collects dispatched events and signals each arrival.
type recordingHandler struct {
	mu      sync.Mutex
	upserts []*catalog.Game
	deletes []string
	applied chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{applied: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleRealtimeUpsert(ctx context.Context, game *catalog.Game) error {
	h.mu.Lock()
	h.upserts = append(h.upserts, game)
	h.mu.Unlock()
	h.applied <- struct{}{}
	return nil
}

func (h *recordingHandler) HandleRealtimeDelete(ctx context.Context, id string) error {
	h.mu.Lock()
	h.deletes = append(h.deletes, id)
	h.mu.Unlock()
	h.applied <- struct{}{}
	return nil
}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.applied:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event to be applied")
	}
}

// eventServer upgrades one connection and sends the given raw messages.
func eventServer(t *testing.T, messages [][]byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		for _, msg := range messages {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		_, _, _ = conn.Read(ctx)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func TestSubscriber_DispatchesEvents(t *testing.T) {
	handler := newRecordingHandler()
	game := &catalog.Game{ID: "g-1", Name: "Pushed Game", Status: catalog.StatusCompleted}

	url := eventServer(t, [][]byte{
		mustJSON(t, Event{Type: EventUpsert, Game: game}),
		mustJSON(t, Event{Type: EventDelete, ID: "g-2"}),
	})

	sub, err := NewSubscriber(&SubscriberConfig{URL: url}, handler)
	if err != nil {
		t.Fatalf("NewSubscriber() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = sub.Run(ctx)
		close(done)
	}()

	handler.wait(t)
	handler.wait(t)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.upserts) != 1 || handler.upserts[0].ID != "g-1" {
		t.Errorf("upserts = %v, want single g-1", handler.upserts)
	}
	if len(handler.deletes) != 1 || handler.deletes[0] != "g-2" {
		t.Errorf("deletes = %v, want single g-2", handler.deletes)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestSubscriber_SkipsMalformedEvents(t *testing.T) {
	handler := newRecordingHandler()
	game := &catalog.Game{ID: "g-1", Name: "Good Event"}

	// Garbage, an unknown type, and an upsert with no payload must all be
	// skipped without killing the stream; the valid event still lands.
	url := eventServer(t, [][]byte{
		[]byte("{not json"),
		mustJSON(t, Event{Type: "rename", ID: "g-9"}),
		mustJSON(t, Event{Type: EventUpsert}),
		mustJSON(t, Event{Type: EventUpsert, Game: game}),
	})

	sub, err := NewSubscriber(&SubscriberConfig{URL: url}, handler)
	if err != nil {
		t.Fatalf("NewSubscriber() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sub.Run(ctx) }()

	handler.wait(t)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.upserts) != 1 || handler.upserts[0].ID != "g-1" {
		t.Errorf("upserts = %v, want single g-1 after skipping bad events", handler.upserts)
	}
	if len(handler.deletes) != 0 {
		t.Errorf("deletes = %v, want none", handler.deletes)
	}
}

func TestSubscriber_ReconnectsAfterDrop(t *testing.T) {
	handler := newRecordingHandler()

	// Each connection sends one upsert then closes, forcing a reconnect.
	var connections int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		event := mustJSONRaw(Event{Type: EventUpsert, Game: &catalog.Game{
			ID: "g-" + string(rune('0'+n)), Name: "Reconnect Test"}})
		_ = conn.Write(r.Context(), websocket.MessageText, event)
		conn.Close(websocket.StatusGoingAway, "rolling restart")
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sub, err := NewSubscriber(&SubscriberConfig{URL: url}, handler)
	if err != nil {
		t.Fatalf("NewSubscriber() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sub.Run(ctx) }()

	// Two applied events prove a second connection was established.
	handler.wait(t)
	handler.wait(t)

	mu.Lock()
	defer mu.Unlock()
	if connections < 2 {
		t.Errorf("connections = %d, want at least 2", connections)
	}
}

func mustJSONRaw(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}

func TestNewSubscriber_Validation(t *testing.T) {
	if _, err := NewSubscriber(nil, newRecordingHandler()); err == nil {
		t.Error("NewSubscriber(nil config) = nil error, want error")
	}
	if _, err := NewSubscriber(&SubscriberConfig{URL: "ws://x"}, nil); err == nil {
		t.Error("NewSubscriber(nil handler) = nil error, want error")
	}
}
