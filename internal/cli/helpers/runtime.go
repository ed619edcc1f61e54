package helpers

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/grokteam/grokteam/internal/api"
	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/config"
	"github.com/grokteam/grokteam/internal/logging"
)

// GlobalOptions are the persistent flags every command shares.
type GlobalOptions struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
	Debug      bool
}

// AddFlags registers the persistent flags on fs.
func (o *GlobalOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "Config file (default ~/.grokteam/config.yaml)")
	fs.StringVar(&o.APIURL, "api", "", "Backend API base URL (overrides config and GROKTEAM_API_URL)")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
}

// Overrides converts the flags into config overrides.
func (o *GlobalOptions) Overrides() config.Overrides {
	level := o.LogLevel
	if o.Debug {
		level = "debug"
	}
	return config.Overrides{
		ConfigPath: o.ConfigPath,
		APIURL:     o.APIURL,
		LogLevel:   level,
	}
}

// Runtime is what a command needs to talk to the backend: the resolved
// config, a logger and an API client.
type Runtime struct {
	Loader *config.Loader
	Config *config.Resolved
	Logger zerolog.Logger
	Client *api.Client

	logFile *os.File
}

// RuntimeOption tweaks how a Runtime is opened.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	logToFile bool
	logOutput io.Writer
}

// WithLogFile sends logs to the configured log file instead of stderr.
// Full-screen commands use it so log lines never reach the terminal.
func WithLogFile() RuntimeOption {
	return func(o *runtimeOptions) { o.logToFile = true }
}

// WithLogOutput sends logs to w.
func WithLogOutput(w io.Writer) RuntimeOption {
	return func(o *runtimeOptions) { o.logOutput = w }
}

// Open resolves and validates the config and builds the logger and client.
func (o *GlobalOptions) Open(opts ...RuntimeOption) (*Runtime, error) {
	var ro runtimeOptions
	for _, opt := range opts {
		opt(&ro)
	}

	loader := config.NewLoader()
	resolved, err := loader.Resolve(o.Overrides())
	if err != nil {
		return nil, err
	}
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", resolved.Path, err)
	}

	rt := &Runtime{Loader: loader, Config: resolved}

	logCfg := logging.DefaultConfig()
	logCfg.Level = resolved.Log.Level
	switch {
	case ro.logOutput != nil:
		logCfg.Output = ro.logOutput
	case ro.logToFile:
		path := resolved.Log.File
		if path == "" {
			path = loader.LogPath()
		}
		f, err := logging.OpenFile(path)
		if err != nil {
			return nil, err
		}
		rt.logFile = f
		logCfg.Output = f
		logCfg.Pretty = false
	}
	rt.Logger = logging.New(logCfg)

	rt.Client = api.New(resolved.API.BaseURL,
		api.WithLogger(rt.Logger),
		api.WithRetry(resolved.API.Retry.Policy()),
		api.WithRequestTimeout(resolved.API.RequestTimeout),
	)

	rt.Logger.Debug().
		Str("config", resolved.Path).
		Str("layers", resolved.LayerNames()).
		Str("api", rt.Client.BaseURL()).
		Msg("Configuration resolved")

	return rt, nil
}

// NewStore builds a conversation store over the runtime's client, seeded
// with the configured temperatures.
func (r *Runtime) NewStore() *chat.Store {
	return chat.NewStore(r.Client, r.Logger, chat.WithTemperatures(r.Config.TemperaturesFor()))
}

// Close releases the log file, if any.
func (r *Runtime) Close() error {
	if r.logFile == nil {
		return nil
	}
	return r.logFile.Close()
}
