// Package tomlconfig loads the client configuration from TOML files. The
// tables and keys mirror the HCL format:
//
//	[server]
//	url = "http://localhost:8000"
//	timeout = "10s"
//
//	[parameters]
//	solver = "svd"
package tomlconfig

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/ctxlog"
)

// Loader is the TOML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new TOML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

type file struct {
	Server struct {
		URL       *string `toml:"url"`
		WSURL     *string `toml:"ws_url"`
		Transport *string `toml:"transport"`
		Timeout   *string `toml:"timeout"`
	} `toml:"server"`
	Connection struct {
		MaxReconnectAttempts *int    `toml:"max_reconnect_attempts"`
		ReconnectInterval    *string `toml:"reconnect_interval"`
	} `toml:"connection"`
	Pipeline struct {
		Debounce *string `toml:"debounce"`
	} `toml:"pipeline"`
	Layout struct {
		HorizontalSpacing *float64 `toml:"horizontal_spacing"`
		VerticalSpacing   *float64 `toml:"vertical_spacing"`
	} `toml:"layout"`
	Log struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
	Status struct {
		Port *int `toml:"port"`
	} `toml:"status"`
	Parameters map[string]any `toml:"parameters"`
}

// Load decodes each file in order on top of a copy of base. Unlike the HCL
// loader it takes files only, and a missing file is an error.
func (l *Loader) Load(ctx context.Context, base *config.Model, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	if base == nil {
		base = config.Default()
	}
	model := base.Clone()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read TOML file %s: %w", path, err)
		}
		var f file
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			logger.Warn("Ignoring unknown configuration keys.", "file", path, "keys", fmt.Sprint(undecoded))
		}
		if err := apply(&f, model); err != nil {
			return nil, fmt.Errorf("in %s: %w", path, err)
		}
		logger.Debug("TOML file loaded.", "file", path)
	}
	return model, nil
}

func apply(f *file, m *config.Model) error {
	set(&m.Server.URL, f.Server.URL)
	set(&m.Server.WSURL, f.Server.WSURL)
	set(&m.Server.Transport, f.Server.Transport)
	set(&m.Connection.MaxReconnectAttempts, f.Connection.MaxReconnectAttempts)
	set(&m.Layout.HorizontalSpacing, f.Layout.HorizontalSpacing)
	set(&m.Layout.VerticalSpacing, f.Layout.VerticalSpacing)
	set(&m.Log.Level, f.Log.Level)
	set(&m.Log.Format, f.Log.Format)
	set(&m.Status.Port, f.Status.Port)

	durations := []struct {
		dst   *time.Duration
		v     *string
		field string
	}{
		{&m.Server.Timeout, f.Server.Timeout, "server.timeout"},
		{&m.Connection.ReconnectInterval, f.Connection.ReconnectInterval, "connection.reconnect_interval"},
		{&m.Pipeline.Debounce, f.Pipeline.Debounce, "pipeline.debounce"},
	}
	for _, d := range durations {
		if d.v == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", config.ErrInvalid, d.field, err)
		}
		*d.dst = parsed
	}

	for k, v := range f.Parameters {
		m.Parameters[k] = normalize(v)
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// normalize turns TOML integers into float64 so overrides compare equal to
// values decoded from JSON.
func normalize(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}
