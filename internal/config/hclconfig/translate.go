package hclconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/ctxlog"
)

// fileRoot decodes every top-level construct a file may hold. Unknown blocks
// are left in Remain.
type fileRoot struct {
	Server     *serverBlock     `hcl:"server,block"`
	Connection *connectionBlock `hcl:"connection,block"`
	Pipeline   *pipelineBlock   `hcl:"pipeline,block"`
	Layout     *layoutBlock     `hcl:"layout,block"`
	Log        *logBlock        `hcl:"log,block"`
	Status     *statusBlock     `hcl:"status,block"`
	Parameters hcl.Expression   `hcl:"parameters,optional"`
	Remain     hcl.Body         `hcl:",remain"`
}

type serverBlock struct {
	URL       *string `hcl:"url,optional"`
	WSURL     *string `hcl:"ws_url,optional"`
	Transport *string `hcl:"transport,optional"`
	Timeout   *string `hcl:"timeout,optional"`
}

type connectionBlock struct {
	MaxReconnectAttempts *int    `hcl:"max_reconnect_attempts,optional"`
	ReconnectInterval    *string `hcl:"reconnect_interval,optional"`
}

type pipelineBlock struct {
	Debounce *string `hcl:"debounce,optional"`
}

type layoutBlock struct {
	HorizontalSpacing *float64 `hcl:"horizontal_spacing,optional"`
	VerticalSpacing   *float64 `hcl:"vertical_spacing,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type statusBlock struct {
	Port *int `hcl:"port,optional"`
}

// translate overlays the values present in root onto m.
func translate(ctx context.Context, root *fileRoot, m *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	if b := root.Server; b != nil {
		set(&m.Server.URL, b.URL)
		set(&m.Server.WSURL, b.WSURL)
		set(&m.Server.Transport, b.Transport)
		if err := setDuration(&m.Server.Timeout, b.Timeout, "server.timeout"); err != nil {
			return err
		}
	}
	if b := root.Connection; b != nil {
		set(&m.Connection.MaxReconnectAttempts, b.MaxReconnectAttempts)
		if err := setDuration(&m.Connection.ReconnectInterval, b.ReconnectInterval, "connection.reconnect_interval"); err != nil {
			return err
		}
	}
	if b := root.Pipeline; b != nil {
		if err := setDuration(&m.Pipeline.Debounce, b.Debounce, "pipeline.debounce"); err != nil {
			return err
		}
	}
	if b := root.Layout; b != nil {
		set(&m.Layout.HorizontalSpacing, b.HorizontalSpacing)
		set(&m.Layout.VerticalSpacing, b.VerticalSpacing)
	}
	if b := root.Log; b != nil {
		set(&m.Log.Level, b.Level)
		set(&m.Log.Format, b.Format)
	}
	if b := root.Status; b != nil {
		set(&m.Status.Port, b.Port)
	}

	if isExprDefined(root.Parameters) {
		params, err := decodeParameters(root.Parameters)
		if err != nil {
			return err
		}
		for k, v := range params {
			m.Parameters[k] = v
		}
		logger.Debug("Decoded parameter overrides.", "count", len(params))
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, field string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", config.ErrInvalid, field, err)
	}
	*dst = d
	return nil
}
