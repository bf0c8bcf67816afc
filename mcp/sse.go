package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foomo/contentsite/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SSEEvent represents an SSE event structure
type SSEEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func newSSEEvent(event string, data any) SSEEvent {
	return SSEEvent{
		ID:        uuid.NewString(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	}
}

type sseClient struct {
	id          string
	events      chan SSEEvent
	connectedAt time.Time
	lastSeen    atomic.Int64
}

// EventHubConfig holds configuration for the event hub
type EventHubConfig struct {
	KeepaliveInterval time.Duration
	BufferSize        int
}

func DefaultEventHubConfig() *EventHubConfig {
	return &EventHubConfig{
		KeepaliveInterval: 30 * time.Second,
		BufferSize:        100,
	}
}

// EventHub fans site events out to connected SSE clients. Every client
// has its own buffer; a slow client loses events instead of blocking the
// publisher.
type EventHub struct {
	logger *zap.Logger
	config *EventHubConfig

	clientsMutex sync.RWMutex
	clients      map[string]*sseClient

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewEventHub(logger *zap.Logger, config *EventHubConfig) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = DefaultEventHubConfig()
	}
	return &EventHub{
		logger:  logger,
		config:  config,
		clients: map[string]*sseClient{},
	}
}

// Publish is a service observer.
func (h *EventHub) Publish(e service.Event) {
	h.Broadcast(newSSEEvent(string(e.Kind), e))
}

func (h *EventHub) Broadcast(event SSEEvent) {
	h.published.Add(1)
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	for _, client := range h.clients {
		select {
		case client.events <- event:
		default:
			h.dropped.Add(1)
			h.logger.Warn("client buffer full, dropping event",
				zap.String("clientID", client.id),
				zap.String("event", event.Event),
			)
		}
	}
}

func (h *EventHub) addClient() *sseClient {
	client := &sseClient{
		id:          uuid.NewString(),
		events:      make(chan SSEEvent, h.config.BufferSize),
		connectedAt: time.Now(),
	}
	client.lastSeen.Store(time.Now().UnixNano())
	h.clientsMutex.Lock()
	h.clients[client.id] = client
	h.clientsMutex.Unlock()
	h.logger.Info("SSE client connected", zap.String("clientID", client.id))
	return client
}

func (h *EventHub) removeClient(id string) {
	h.clientsMutex.Lock()
	delete(h.clients, id)
	h.clientsMutex.Unlock()
	h.logger.Info("SSE client disconnected", zap.String("clientID", id))
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, eventJSON); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")
}

// HandleSSE streams hub events until the client goes away.
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)

	client := h.addClient()
	defer h.removeClient(client.id)

	connected := newSSEEvent("connected", map[string]string{"clientID": client.id})
	if err := writeSSE(w, flusher, connected); err != nil {
		h.logger.Error("failed to send connection event", zap.String("clientID", client.id), zap.Error(err))
		return
	}

	ticker := time.NewTicker(h.config.KeepaliveInterval)
	defer ticker.Stop()
	for {
		var event SSEEvent
		select {
		case <-r.Context().Done():
			return
		case event = <-client.events:
		case <-ticker.C:
			event = newSSEEvent("keepalive", map[string]any{"timestamp": time.Now()})
		}
		if err := writeSSE(w, flusher, event); err != nil {
			h.logger.Debug("failed to send event", zap.String("clientID", client.id), zap.Error(err))
			return
		}
		client.lastSeen.Store(time.Now().UnixNano())
	}
}

// HandlePageSSE opens the page named by the slug query parameter and
// streams page_start, then page_result or page_error, then page_complete.
// Streams sharing a viewer query parameter replace each other's opens.
func HandlePageSSE(site Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.URL.Query().Get("slug")
		if slug == "" {
			http.Error(w, "slug is required", http.StatusBadRequest)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}
		setSSEHeaders(w)

		if err := writeSSE(w, flusher, newSSEEvent("page_start", map[string]string{"slug": slug})); err != nil {
			return
		}
		force := r.URL.Query().Get("force") == "true"
		viewer := r.URL.Query().Get("viewer")
		if viewer == "" {
			viewer = uuid.NewString()
		}
		doc, err := site.Document(service.WithViewer(r.Context(), "events:"+viewer), slug, force)
		if err != nil {
			_ = writeSSE(w, flusher, newSSEEvent("page_error", map[string]string{"error": err.Error()}))
			return
		}
		if err := writeSSE(w, flusher, newSSEEvent("page_result", map[string]any{"document": doc})); err != nil {
			return
		}
		_ = writeSSE(w, flusher, newSSEEvent("page_complete", map[string]string{"status": "completed"}))
	}
}

type ClientInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeen    time.Time `json:"lastSeen"`
	Buffered    int       `json:"buffered"`
}

func (h *EventHub) GetConnectedClients() []ClientInfo {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	clients := make([]ClientInfo, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, ClientInfo{
			ID:          client.id,
			ConnectedAt: client.connectedAt,
			LastSeen:    time.Unix(0, client.lastSeen.Load()),
			Buffered:    len(client.events),
		})
	}
	return clients
}

type Stats struct {
	ConnectedClients int    `json:"connectedClients"`
	Published        uint64 `json:"published"`
	Dropped          uint64 `json:"dropped"`
	ServerVersion    string `json:"serverVersion"`
}

func (h *EventHub) GetStats() Stats {
	h.clientsMutex.RLock()
	connected := len(h.clients)
	h.clientsMutex.RUnlock()
	return Stats{
		ConnectedClients: connected,
		Published:        h.published.Load(),
		Dropped:          h.dropped.Load(),
		ServerVersion:    Version,
	}
}
