// Package config loads the process configuration from a YAML file,
// CONTENTSITE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "CONTENTSITE"

const (
	SourceAPI           = "api"
	SourceContentServer = "contentserver"
)

type Config struct {
	APIURL   string        `mapstructure:"apiURL"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Source   string        `mapstructure:"source"`
	LogLevel string        `mapstructure:"logLevel"`

	ContentServerURL       string   `mapstructure:"contentServerURL"`
	ContentServerRoot      string   `mapstructure:"contentServerRoot"`
	ContentServerMimeTypes []string `mapstructure:"contentServerMimeTypes"`
	ContentServerDimension string   `mapstructure:"contentServerDimension"`

	CacheSize      int           `mapstructure:"cacheSize"`
	RetryBaseDelay time.Duration `mapstructure:"retryBaseDelay"`

	HTTP        string `mapstructure:"http"` // listen address; empty serves stdio
	MCPEndpoint string `mapstructure:"mcpEndpoint"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("apiURL", "http://localhost:3001/api")
	v.SetDefault("token", "")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("source", SourceAPI)
	v.SetDefault("logLevel", "info")
	v.SetDefault("contentServerURL", "")
	v.SetDefault("contentServerRoot", "")
	v.SetDefault("contentServerMimeTypes", []string{})
	v.SetDefault("contentServerDimension", "")
	v.SetDefault("cacheSize", 256)
	v.SetDefault("retryBaseDelay", time.Second)
	v.SetDefault("http", "")
	v.SetDefault("mcpEndpoint", "/mcp")
}

// Load reads cfgFile, or ./contentsite.yaml if cfgFile is empty. A missing
// default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("contentsite")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the config file whenever it changes. A valid change moves
// level to the new logLevel and is passed to onChange; an invalid one is
// logged and ignored. Settings other than logLevel take effect on restart.
func Watch(v *viper.Viper, level zap.AtomicLevel, logger *zap.Logger, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		apply(v, level, logger, e, onChange)
	})
	v.WatchConfig()
}

func apply(v *viper.Viper, level zap.AtomicLevel, logger *zap.Logger, e fsnotify.Event, onChange func(*Config)) {
	cfg, err := decode(v)
	if err != nil {
		logger.Warn("ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
		return
	}
	lvl, _ := zapcore.ParseLevel(cfg.LogLevel)
	if lvl != level.Level() {
		logger.Info("log level changed", zap.Stringer("from", level.Level()), zap.Stringer("to", lvl))
		level.SetLevel(lvl)
	}
	if onChange != nil {
		onChange(cfg)
	}
}

func (c *Config) Validate() error {
	var errs []error
	if err := checkServerURL("apiURL", c.APIURL); err != nil {
		errs = append(errs, err)
	}
	switch c.Source {
	case SourceAPI:
	case SourceContentServer:
		if err := checkServerURL("contentServerURL", c.ContentServerURL); err != nil {
			errs = append(errs, err)
		}
		if c.ContentServerRoot == "" {
			errs = append(errs, errors.New("contentServerRoot is required for source contentserver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cacheSize must be positive, got %d", c.CacheSize))
	}
	if c.Timeout < 0 || c.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func checkServerURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}

// NewLogger builds a production zap logger writing to stderr, which keeps
// stdout free for the stdio transport. The returned level can be changed at
// runtime, see Watch.
func (c *Config) NewLogger() (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	return logger, zc.Level, nil
}
