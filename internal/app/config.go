package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/config/hclconfig"
	"github.com/vk/tensorscope/internal/config/tomlconfig"
	"github.com/vk/tensorscope/internal/ctxlog"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// LoadConfig builds the configuration from the defaults, the file or
// directory at path (skipped when empty) and the environment. The result is
// not validated yet so callers can still apply command line overrides.
func LoadConfig(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := config.Default()

	if path != "" {
		loader, err := loaderFor(path)
		if err != nil {
			return nil, err
		}
		cfg, err = loader.Load(ctx, cfg, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		logger.Debug("Configuration file loaded.", "path", path)
	}

	if err := config.ApplyEnvFiles(cfg, DotEnvFile); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	return cfg, nil
}

// loaderFor picks the loader by extension. Directories are read as HCL.
func loaderFor(path string) (config.Loader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing config %s: %w", path, err)
	}
	if info.IsDir() {
		return hclconfig.NewLoader(), nil
	}
	switch filepath.Ext(path) {
	case ".hcl":
		return hclconfig.NewLoader(), nil
	case ".toml":
		return tomlconfig.NewLoader(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported config file %s, expected .hcl or .toml", config.ErrInvalid, path)
	}
}
