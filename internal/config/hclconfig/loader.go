// Package hclconfig loads the client configuration from HCL files.
//
//	server {
//	  url       = "http://localhost:8000"
//	  ws_url    = "ws://localhost:8000/ws"
//	  transport = "websocket"
//	  timeout   = "10s"
//	}
//	connection {
//	  max_reconnect_attempts = 10
//	  reconnect_interval     = "3s"
//	}
//	pipeline { debounce = "150ms" }
//	layout {
//	  horizontal_spacing = 250
//	  vertical_spacing   = 100
//	}
//	log {
//	  level  = "info"
//	  format = "text"
//	}
//	status { port = 8081 }
//	parameters = { solver = "svd", n = 64 }
package hclconfig

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/ctxlog"
	"github.com/vk/tensorscope/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file found under paths and overlays it on a copy of
// base. Directories are walked; paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, base *config.Model, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	if base == nil {
		base = config.Default()
	}
	model := base.Clone()

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := translate(ctx, &root, model); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "parameters", len(model.Parameters))
	return model, nil
}

// isExprDefined reports whether an optional attribute was present in the
// source. gohcl fills omitted optional expressions with zero-width
// placeholders, so a nil check is not enough.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
