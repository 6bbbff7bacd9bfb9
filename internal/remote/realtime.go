package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

// EventType defines the type of a push event.
type EventType string

const (
	// EventUpsert carries a created or updated game row.
	EventUpsert EventType = "upsert"

	// EventDelete carries the id of a removed game.
	EventDelete EventType = "delete"
)

// Event is one catalog change pushed over the realtime channel.
type Event struct {
	Type EventType     `json:"type"`
	Game *catalog.Game `json:"game,omitempty"`
	ID   string        `json:"id,omitempty"`
}

// Handler receives decoded push events. Both methods are called from the
// subscriber's read goroutine, one event at a time.
type Handler interface {
	HandleRealtimeUpsert(ctx context.Context, game *catalog.Game) error
	HandleRealtimeDelete(ctx context.Context, id string) error
}

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 2 * time.Minute
)

// SubscriberConfig holds realtime subscription configuration.
type SubscriberConfig struct {
	// URL of the realtime WebSocket endpoint, e.g. wss://api.example.com/ws
	URL string

	// Logger for connection activity (default: stderr logger).
	Logger *log.Logger
}

// Subscriber maintains a WebSocket subscription to the catalog's push
// channel. It reconnects with exponential backoff for as long as its context
// lives; a bad event is logged and skipped, never fatal to the connection.
type Subscriber struct {
	url     string
	handler Handler
	logger  *log.Logger
}

// NewSubscriber creates a realtime subscriber delivering events to handler.
func NewSubscriber(config *SubscriberConfig, handler Handler) (*Subscriber, error) {
	if config == nil || config.URL == "" {
		return nil, fmt.Errorf("realtime endpoint URL is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("realtime handler is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[realtime] ", log.LstdFlags)
	}

	return &Subscriber{
		url:     config.URL,
		handler: handler,
		logger:  logger,
	}, nil
}

// Run connects and processes events until ctx is cancelled. Connection
// failures and dropped connections trigger reconnection with exponential
// backoff; the backoff resets after each successful connection.
func (s *Subscriber) Run(ctx context.Context) error {
	delay := reconnectBaseDelay

	for {
		connected, err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			// The dial succeeded, so the endpoint is healthy again.
			delay = reconnectBaseDelay
		}

		s.logger.Printf("Realtime connection lost (%v), reconnecting in %v", err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// connectAndRead runs one connection lifetime: dial, then read and dispatch
// events until the connection drops or ctx is cancelled. The bool reports
// whether the dial succeeded.
func (s *Subscriber) connectAndRead(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	conn, _, err := websocket.Dial(dialCtx, s.url, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("failed to dial %s: %w", s.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Page-sized payloads can arrive after a burst of catalog edits.
	conn.SetReadLimit(1 << 20)

	s.logger.Printf("Realtime connection established")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}
		s.dispatch(ctx, data)
	}
}

// dispatch decodes and applies one event. Malformed or failing events are
// logged and dropped so one bad message cannot wedge the stream.
func (s *Subscriber) dispatch(ctx context.Context, data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Printf("Skipping malformed event: %v", err)
		return
	}

	switch event.Type {
	case EventUpsert:
		if event.Game == nil {
			s.logger.Printf("Skipping upsert event with no game payload")
			return
		}
		if err := s.handler.HandleRealtimeUpsert(ctx, event.Game); err != nil {
			s.logger.Printf("Failed to apply upsert for %s: %v", event.Game.ID, err)
		}

	case EventDelete:
		if event.ID == "" {
			s.logger.Printf("Skipping delete event with no id")
			return
		}
		if err := s.handler.HandleRealtimeDelete(ctx, event.ID); err != nil {
			s.logger.Printf("Failed to apply delete for %s: %v", event.ID, err)
		}

	default:
		s.logger.Printf("Ignoring unknown event type %q", event.Type)
	}
}
