package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/foomo/contentsite/config"
	"github.com/foomo/contentsite/mcp"
	"github.com/foomo/contentsite/service"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site tools over MCP",
		Long: `Without --http the MCP server speaks stdio. With --http it listens on the
given address and serves the streamable MCP endpoint, the /events SSE
stream of cache and content changes, and /metrics.

Changes to logLevel in the config file apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hub := mcp.NewEventHub(a.logger.Named("events"), nil)
			site := a.newSite(service.WithObserver(hub.Publish))
			defer site.Close()
			start(cmd, a, site)
			config.Watch(a.v, a.level, a.logger.Named("config"), nil)

			s := mcp.NewServer(site)
			if a.cfg.HTTP == "" {
				a.logger.Info("starting MCP server in stdio mode")
				return server.ServeStdio(s)
			}
			return serveHTTP(cmd.Context(), a, &http.Server{
				Addr:              a.cfg.HTTP,
				Handler:           mcp.NewHTTPServer(a.logger, s, site, hub, a.registry, a.cfg.MCPEndpoint),
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}
	cmd.Flags().String("http", "", "HTTP server address (e.g., ':8080')")
	_ = a.v.BindPFlag("http", cmd.Flags().Lookup("http"))
	return cmd
}

func serveHTTP(ctx context.Context, a *app, srv *http.Server) error {
	// event streams end with ctx instead of holding up Shutdown
	srv.BaseContext = func(net.Listener) context.Context { return ctx }
	errs := make(chan error, 1)
	go func() {
		a.logger.Info("starting MCP server", zap.String("addr", srv.Addr), zap.String("endpoint", a.cfg.MCPEndpoint))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
