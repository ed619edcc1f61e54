package config

import (
	"fmt"
	"strings"
)

// Layer represents a configuration layer source.
type Layer string

const (
	// LayerDefaults represents default configuration values.
	LayerDefaults Layer = "defaults"

	// LayerFile represents configuration from a file.
	LayerFile Layer = "file"

	// LayerEnv represents configuration from environment variables.
	LayerEnv Layer = "env"

	// LayerFlags represents configuration from command-line flags.
	LayerFlags Layer = "flags"
)

// Overrides are values set on the command line. Empty fields do not
// override anything.
type Overrides struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
}

// Resolved is a loaded config together with where it came from.
type Resolved struct {
	*Config
	// Path is the config file that was consulted.
	Path string
	// Layers lists the layers that contributed, lowest precedence first.
	Layers []Layer
}

// Resolve loads the config with layered precedence, each layer overriding
// the previous one:
//  1. Defaults
//  2. File (--config, or the loader's config path)
//  3. Environment
//  4. Flags
func (l *Loader) Resolve(o Overrides) (*Resolved, error) {
	path := o.ConfigPath
	if path == "" {
		path = l.ConfigPath()
	}

	res := &Resolved{Config: DefaultConfig(), Path: path, Layers: []Layer{LayerDefaults}}

	err := mergeFromFile(res.Config, path)
	switch {
	case err == nil:
		res.Layers = append(res.Layers, LayerFile)
	case o.ConfigPath != "" || !isNotExist(err):
		// An explicit --config must exist.
		return nil, err
	}

	if err := LoadFromEnv(res.Config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	res.Layers = append(res.Layers, LayerEnv)

	if o.applyTo(res.Config) {
		res.Layers = append(res.Layers, LayerFlags)
	}

	return res, nil
}

func (o Overrides) applyTo(cfg *Config) bool {
	applied := false
	if v := strings.TrimSpace(o.APIURL); v != "" {
		cfg.API.BaseURL = v
		applied = true
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.Log.Level = v
		applied = true
	}
	return applied
}

// LayerNames renders the contributing layers for display.
func (r *Resolved) LayerNames() string {
	names := make([]string, len(r.Layers))
	for i, l := range r.Layers {
		names[i] = string(l)
	}
	return strings.Join(names, " < ")
}
