// Package cmd provides the contentsite command line.
//
// Configuration precedence, highest first: flags, CONTENTSITE_* environment
// variables (CONTENTSITE_APIURL, CONTENTSITE_CACHESIZE, …), the config file
// (--config, default ./contentsite.yaml), compiled-in defaults.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/foomo/contentsite/api"
	"github.com/foomo/contentsite/config"
	"github.com/foomo/contentsite/contentserver"
	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/service"
	"github.com/foomo/contentserver/requests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	v        *viper.Viper
	cfgFile  string
	dump     bool
	cfg      *config.Config
	logger   *zap.Logger
	level    zap.AtomicLevel
	registry *prometheus.Registry
}

func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "contentsite",
		Short: "Client for the tutorial site content API",
		Long: `contentsite talks to the tutorial site REST API. It caches published pages,
merges the navigation, loads tutorials with retries and serves all of it
to MCP clients over stdio or HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./contentsite.yaml)")
	flags.String("api-url", "", "base URL of the REST API")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&a.dump, "dump", false, "dump results as Go values instead of JSON")
	_ = a.v.BindPFlag("apiURL", flags.Lookup("api-url"))
	_ = a.v.BindPFlag("logLevel", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newPageCmd(a),
		newNavCmd(a),
		newTutorialsCmd(a),
		newContentCmd(a),
		newSlugCmd(),
		newURLCmd(),
		newServeCmd(a),
	)
	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) initialize(_ *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, level, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.level = level
	a.registry = prometheus.NewRegistry()
	a.logger.Debug("configuration loaded", zap.String("file", a.v.ConfigFileUsed()), zap.String("source", cfg.Source))
	return nil
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.cfg.Timeout}
}

func (a *app) newAPI() *api.Client {
	return api.New(a.cfg.APIURL,
		api.WithHTTPClient(a.httpClient()),
		api.WithLogger(a.logger.Named("api")),
		api.WithToken(a.cfg.Token),
	)
}

func (a *app) newSite(opts ...service.Option) *service.Site {
	options := []service.Option{
		service.WithLogger(a.logger),
		service.WithMetrics(metrics.New(a.registry)),
		service.WithCacheSize(a.cfg.CacheSize),
		service.WithRetryBaseDelay(a.cfg.RetryBaseDelay),
	}
	if a.cfg.Source == config.SourceContentServer {
		env := &requests.Env{}
		if a.cfg.ContentServerDimension != "" {
			env.Dimensions = []string{a.cfg.ContentServerDimension}
		}
		source := contentserver.New(
			contentserver.NewHTTPClient(a.cfg.ContentServerURL, a.httpClient()),
			contentserver.Settings{
				Env:       env,
				RootID:    a.cfg.ContentServerRoot,
				MimeTypes: a.cfg.ContentServerMimeTypes,
			},
			a.logger.Named("contentserver"),
		)
		options = append(options, service.WithPageSource(source))
	}
	return service.New(a.newAPI(), append(options, opts...)...)
}

func (a *app) print(w io.Writer, v any) error {
	if a.dump {
		spew.Fdump(w, v)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
