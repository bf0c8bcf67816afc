package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// HandleWebSocket streams the same events as HandleSSE as JSON text
// messages. Incoming messages are ignored.
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	client := h.addClient()
	defer h.removeClient(client.id)

	// CloseRead keeps answering control frames and ends ctx when the peer leaves
	ctx := conn.CloseRead(r.Context())

	if err := h.writeWebSocket(ctx, conn, newSSEEvent("connected", map[string]string{"clientID": client.id})); err != nil {
		return
	}

	ticker := time.NewTicker(h.config.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-client.events:
			if err := h.writeWebSocket(ctx, conn, event); err != nil {
				h.logger.Debug("websocket write failed", zap.String("clientID", client.id), zap.Error(err))
				return
			}
			client.lastSeen.Store(time.Now().UnixNano())
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
			client.lastSeen.Store(time.Now().UnixNano())
		}
	}
}

func (h *EventHub) writeWebSocket(ctx context.Context, conn *websocket.Conn, event SSEEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, message)
}
