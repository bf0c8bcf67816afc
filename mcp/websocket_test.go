package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/foomo/contentsite/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebSocket(t *testing.T) {
	hub := NewEventHub(nil, nil)
	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var event SSEEvent
	require.NoError(t, wsjson.Read(ctx, conn, &event))
	assert.Equal(t, "connected", event.Event)
	assert.Len(t, hub.GetConnectedClients(), 1)

	hub.Publish(service.Event{Kind: service.EventSectionUpdated, Section: "hero"})
	require.NoError(t, wsjson.Read(ctx, conn, &event))
	assert.Equal(t, "section_updated", event.Event)
	assert.Equal(t, map[string]any{"kind": "section_updated", "section": "hero"}, event.Data)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		return hub.GetStats().ConnectedClients == 0
	}, 5*time.Second, 10*time.Millisecond)
}
