package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// sseBroker manages SSE connections for broadcasting reload progress and
// activity updates to connected dashboards.
type sseBroker struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func newSSEBroker() *sseBroker {
	return &sseBroker{
		clients: make(map[chan []byte]struct{}),
	}
}

func (b *sseBroker) register(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
}

func (b *sseBroker) unregister(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
	close(client)
}

func (b *sseBroker) broadcast(data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- data:
		default:
			// Client is slow/blocked, skip
		}
	}
}

// broadcastEvent marshals payload and broadcasts it as a named SSE event.
func (b *sseBroker) broadcastEvent(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", event)
	for _, line := range bytes.Split(data, []byte("\n")) {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteString("\n")
	b.broadcast(buf.Bytes())
}

// handleStream subscribes the caller to the server's event stream.
//
// @Title: Event stream
// @Route: GET /api/stream
// @Description: SSE stream of reload progress snapshots
// @Response: text/event-stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := make(chan []byte, 8)
	s.broker.register(client)
	defer s.broker.unregister(client)

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-client:
			if _, err := w.Write(data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
