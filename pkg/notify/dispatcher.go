// Package notify pushes resolution events to the local agent process.
// Delivery is fire-and-forget: the help request is already durably committed
// before a notification is attempted, so a lost message delays the agent's
// learning but never corrupts state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Event is the single message sent to the agent when a request is resolved.
type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	DBID      string `json:"db_id"`
	Answer    string `json:"answer"`
}

// ResolveEvent builds the event for a resolved help request. requestID is the
// caller's correlation token, dbID the authoritative record id.
func ResolveEvent(requestID, dbID, answer string) Event {
	return Event{
		Type:      "resolve",
		RequestID: requestID,
		DBID:      dbID,
		Answer:    answer,
	}
}

// Dispatcher pushes one event to the agent. Implementations must not block
// beyond their configured timeout; callers treat failures as non-fatal.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// WebSocketDispatcher opens a transient websocket connection to the agent
// endpoint per event, writes one JSON text message, and closes. No
// application-level acknowledgement is awaited; there is no retry and no
// outbound queue.
type WebSocketDispatcher struct {
	endpoint    string
	dialTimeout time.Duration
	logger      *zap.Logger
}

// NewWebSocketDispatcher creates a dispatcher targeting the given websocket
// endpoint (e.g. ws://127.0.0.1:8766).
func NewWebSocketDispatcher(endpoint string, dialTimeout time.Duration, logger *zap.Logger) *WebSocketDispatcher {
	return &WebSocketDispatcher{
		endpoint:    endpoint,
		dialTimeout: dialTimeout,
		logger:      logger.Named("notify"),
	}
}

var _ Dispatcher = (*WebSocketDispatcher)(nil)

// Dispatch sends the event, bounded by the dial timeout end to end.
func (d *WebSocketDispatcher) Dispatch(ctx context.Context, event Event) error {
	ctx, cancel := context.WithTimeout(ctx, d.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, d.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial agent endpoint: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	d.logger.Debug("Dispatched resolution event",
		zap.String("request_id", event.RequestID),
		zap.String("db_id", event.DBID))

	return nil
}
