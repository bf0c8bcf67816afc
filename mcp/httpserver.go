package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// httpRequestKey is a custom context key for storing the original HTTP request
type httpRequestKey struct{}

func withHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

// httpRequestFromContext returns the HTTP request a tool call arrived with.
// A "Cache-Control: no-cache" request header forces getPage to refetch.
func httpRequestFromContext(ctx context.Context) (*http.Request, bool) {
	req, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	return req, ok
}

func httpContextFunc(ctx context.Context, r *http.Request) context.Context {
	return withHTTPRequest(ctx, r)
}

// NewMcpHTTPServer creates the streamable MCP endpoint
func NewMcpHTTPServer(s *server.MCPServer, endpoint string) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(httpContextFunc),
	)
}

// HTTPServer serves the MCP endpoint next to the event stream and metrics:
//
//	<endpoint>          streamable MCP
//	/events             SSE stream of site events
//	/events/page        SSE stream of a single page open (?slug=&force=)
//	/events/ws          the /events stream over a websocket
//	/events/clients     connected SSE clients
//	/events/stats       hub counters
//	/metrics            prometheus
type HTTPServer struct {
	mux *http.ServeMux
	hub *EventHub
}

func NewHTTPServer(logger *zap.Logger, s *server.MCPServer, site Site, hub *EventHub, gatherer prometheus.Gatherer, endpoint string) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, NewMcpHTTPServer(s, endpoint))

	// event streams must not pass the gzip handler, it holds back flushes
	mux.HandleFunc("/events", hub.HandleSSE)
	mux.HandleFunc("/events/page", HandlePageSSE(site))
	mux.HandleFunc("/events/ws", hub.HandleWebSocket)

	mux.Handle("/events/clients", gziphandler.GzipHandler(jsonHandler(logger, func() any {
		clients := hub.GetConnectedClients()
		return map[string]any{
			"connectedClients": len(clients),
			"clients":          clients,
		}
	})))
	mux.Handle("/events/stats", gziphandler.GzipHandler(jsonHandler(logger, func() any {
		return hub.GetStats()
	})))
	if gatherer != nil {
		mux.Handle("/metrics", gziphandler.GzipHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return &HTTPServer{mux: mux, hub: hub}
}

func jsonHandler(logger *zap.Logger, fn func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(fn()); err != nil {
			logger.Debug("failed to write response", zap.String("path", r.URL.Path), zap.Error(err))
		}
	}
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *HTTPServer) Hub() *EventHub {
	return s.hub
}
