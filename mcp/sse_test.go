package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent returns the event name and data of the next SSE frame.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub(nil, nil)
	ts := httptest.NewServer(http.HandlerFunc(hub.HandleSSE))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, r)
	require.Equal(t, "connected", event)
	assert.Len(t, hub.GetConnectedClients(), 1)

	hub.Publish(service.Event{Kind: service.EventPageInvalidated, Slug: "docker"})
	event, data := readEvent(t, r)
	assert.Equal(t, "page_invalidated", event)

	var decoded SSEEvent
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, map[string]any{"kind": "page_invalidated", "slug": "docker"}, decoded.Data)

	cancel()
	require.Eventually(t, func() bool {
		return hub.GetStats().ConnectedClients == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), hub.GetStats().Published)
}

func TestEventHubDropsForSlowClients(t *testing.T) {
	hub := NewEventHub(nil, &EventHubConfig{KeepaliveInterval: time.Hour, BufferSize: 1})
	client := hub.addClient()
	defer hub.removeClient(client.id)

	hub.Broadcast(newSSEEvent("a", nil))
	hub.Broadcast(newSSEEvent("b", nil))

	stats := hub.GetStats()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, "a", (<-client.events).Event)
}

func TestHandlePageSSE(t *testing.T) {
	site := newFakeSite(&fakeTutorialClient{})
	ts := httptest.NewServer(HandlePageSSE(site))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "?slug=docker&force=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	var events []string
	for range 3 {
		event, _ := readEvent(t, r)
		events = append(events, event)
	}
	assert.Equal(t, []string{"page_start", "page_result", "page_complete"}, events)
	assert.True(t, site.lastForce)

	resp, err = http.Get(ts.URL + "?slug=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	r = bufio.NewReader(resp.Body)
	readEvent(t, r)
	event, data := readEvent(t, r)
	assert.Equal(t, "page_error", event)
	assert.Contains(t, data, "404")

	resp, err = http.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServerRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.CacheEvent("hit")

	site := newFakeSite(&fakeTutorialClient{})
	hub := NewEventHub(nil, nil)
	ts := httptest.NewServer(NewHTTPServer(nil, NewServer(site), site, hub, registry, "/mcp"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, Version, stats.ServerVersion)

	resp, err = http.Get(ts.URL + "/events/clients")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "contentsite_page_cache_events_total")
}
