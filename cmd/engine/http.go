package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artificer-ai/artificer/internal/engine"
	"github.com/artificer-ai/artificer/internal/events"
	"github.com/artificer-ai/artificer/internal/logging"
)

// chatTransport is the minimal HTTP front door over *engine.Engine and
// *events.Bus: POST /chat runs one turn and streams its progress events as
// an SSE response using `data: <json>\n\n` framing. Routing beyond the
// three fixed paths and auth middleware stay out of this binary.
type chatTransport struct {
	engine *engine.Engine
	bus    *events.Bus
	logger *slog.Logger
}

// chatRequestBody is the wire shape of a POST /chat body.
type chatRequestBody struct {
	DeviceID       int64  `json:"device_id"`
	DeviceKey      string `json:"device_key"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	RequestID      string `json:"request_id,omitempty"`
}

func (t *chatTransport) mux() http.Handler {
	t.logger = logging.OrDefault(t.logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", t.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/chat", t.handleChat)
	return mux
}

func (t *chatTransport) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleChat decodes one chat turn, runs it against the engine on a
// detached background context (a disconnecting client drops its SSE
// stream, but the turn still persists its messages and queues follow-up
// jobs), and relays the request's event-bus channel to the client as it
// streams.
func (t *chatTransport) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.DeviceKey == "" || body.Message == "" {
		http.Error(w, "device_key and message fields are required", http.StatusBadRequest)
		return
	}
	if body.RequestID == "" {
		body.RequestID = uuid.NewString()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, canFlush := w.(http.Flusher)

	subscriber := t.bus.CreateChannel(body.RequestID)
	sender := events.NewSender(t.bus, body.RequestID)

	req := engine.ChatRequest{
		DeviceID:       body.DeviceID,
		DeviceKey:      body.DeviceKey,
		ConversationID: body.ConversationID,
		Message:        body.Message,
		RequestID:      body.RequestID,
	}

	// Fire-and-forget: the turn outlives the HTTP request so messages and
	// follow-up jobs are always persisted even if the client disconnects.
	go func() {
		bg := context.Background()
		if _, err := t.engine.Chat(bg, req, sender); err != nil {
			t.logger.Error("chat turn failed", "request_id", body.RequestID, "error", err)
		}
	}()

	ctx := r.Context()
	for {
		select {
		case event, ok := <-subscriber:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				t.logger.Error("marshal chat event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if canFlush {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Minute):
			// Belt-and-suspenders against a turn that never reaches a
			// terminal event; the bus channel is cleaned up independently
			// on Done/Error.
			return
		}
	}
}
