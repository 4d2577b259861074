// Package sse translates BalanceEvent values from a session's event bus
// into named Server-Sent Events and guarantees exactly-once unsubscribe
// when the stream ends.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// balanceUpdatePayload is the wire body of a balance_update event.
type balanceUpdatePayload struct {
	Balances map[string]string `json:"balances"`
}

// errorPayload is the wire body of an error event.
type errorPayload struct {
	Code    uint16 `json:"code"`
	Message string `json:"message"`
}

// encode returns the SSE event name and JSON body for one BalanceEvent;
// Serve writes them as an `event: ...\ndata: ...\n\n` frame.
func encode(event domain.BalanceEvent) (name string, body []byte, err error) {
	switch ev := event.(type) {
	case domain.BalanceUpdate:
		balances := make(map[string]string, len(ev.Balances))
		for addr, bal := range ev.Balances {
			balances[addr.String()] = bal.String()
		}
		body, err = json.Marshal(balanceUpdatePayload{Balances: balances})
		return "balance_update", body, err
	case domain.EventError:
		body, err = json.Marshal(errorPayload{Code: ev.Code, Message: ev.Message})
		return "error", body, err
	default:
		return "", nil, fmt.Errorf("sse: unknown BalanceEvent variant %T", event)
	}
}

// CleanupFunc is invoked exactly once when a Stream is done, regardless of
// whether the client disconnected, the server shut down, or an encoder
// error occurred.
type CleanupFunc func()

// Stream wraps a session's event-bus receiver channel with a one-shot
// cleanup guarantee.
type Stream struct {
	events  <-chan domain.BalanceEvent
	cleanup CleanupFunc
	once    sync.Once
}

// NewStream wraps receiver, calling cleanup exactly once when Close is
// called (directly, or via Serve returning).
func NewStream(events <-chan domain.BalanceEvent, cleanup CleanupFunc) *Stream {
	return &Stream{events: events, cleanup: cleanup}
}

// Close triggers the cleanup callback. Idempotent.
func (s *Stream) Close() {
	s.once.Do(func() {
		if s.cleanup != nil {
			s.cleanup()
		}
	})
}

// Serve writes SSE frames for every event received until the request
// context is cancelled (client disconnect), the bus channel closes
// (session torn down), or an encoder error occurs. Close is always called
// before Serve returns.
func (s *Stream) Serve(w http.ResponseWriter, r *http.Request) error {
	defer s.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("sse: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.events:
			if !ok {
				return nil
			}
			name, body, err := encode(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, body); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
