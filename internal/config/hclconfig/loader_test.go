package hclconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorscope/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_FullFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tensorscope.hcl", `
server {
  url       = "http://api:9000"
  ws_url    = "http://api:9000"
  transport = "socketio"
  timeout   = "5s"
}

connection {
  max_reconnect_attempts = 3
  reconnect_interval     = "250ms"
}

pipeline {
  debounce = "75ms"
}

layout {
  horizontal_spacing = 300
  vertical_spacing   = 80.5
}

log {
  level  = "debug"
  format = "json"
}

status {
  port = 8081
}

parameters = {
  solver  = "svd"
  n       = 64
  verbose = true
  weights = [1, 2.5]
}
`)

	m, err := NewLoader().Load(context.Background(), nil, path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, config.Server{URL: "http://api:9000", WSURL: "http://api:9000", Transport: "socketio", Timeout: 5 * time.Second}, m.Server)
	assert.Equal(t, config.Connection{MaxReconnectAttempts: 3, ReconnectInterval: 250 * time.Millisecond}, m.Connection)
	assert.Equal(t, 75*time.Millisecond, m.Pipeline.Debounce)
	assert.Equal(t, config.Layout{HorizontalSpacing: 300, VerticalSpacing: 80.5}, m.Layout)
	assert.Equal(t, config.Log{Level: "debug", Format: "json"}, m.Log)
	assert.Equal(t, 8081, m.Status.Port)
	assert.Equal(t, map[string]any{
		"solver":  "svd",
		"n":       64.0,
		"verbose": true,
		"weights": []any{1.0, 2.5},
	}, m.Parameters)
}

func TestLoader_PartialFileKeepsBase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "partial.hcl", `
log {
  level = "warn"
}
`)
	base := config.Default()
	base.Parameters["n"] = 1.0

	m, err := NewLoader().Load(context.Background(), base, path)
	require.NoError(t, err)
	assert.Equal(t, "warn", m.Log.Level)
	assert.Equal(t, "text", m.Log.Format)
	assert.Equal(t, config.Default().Server, m.Server)
	assert.Equal(t, map[string]any{"n": 1.0}, m.Parameters)

	m.Parameters["n"] = 2.0
	assert.Equal(t, 1.0, base.Parameters["n"], "base is not modified")
}

func TestLoader_DirectoryLaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `status { port = 1000 }`)
	writeFile(t, dir, "nested/b.hcl", `
status { port = 2000 }
parameters = { n = 2 }
`)
	writeFile(t, dir, "notes.txt", `status { port = 3000 }`)

	m, err := NewLoader().Load(context.Background(), nil, dir, filepath.Join(dir, "a.hcl"), filepath.Join(dir, "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, 2000, m.Status.Port, "a.hcl is listed once, the nested file is read after it")
	assert.Equal(t, map[string]any{"n": 2.0}, m.Parameters)
}

func TestLoader_UnknownBlocksAreIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "extra.hcl", `
theme {
  name = "dark"
}
status { port = 1 }
`)
	m, err := NewLoader().Load(context.Background(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Status.Port)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
		invalid bool
	}{
		{"syntax error", "server {\n url = \n", "failed to parse", false},
		{"wrong attribute type", `status { port = "eighty" }`, "failed to decode", false},
		{"unknown attribute", `log { colour = "red" }`, "failed to decode", false},
		{"duplicate block", "log {}\nlog {}\n", "failed to decode", false},
		{"bad duration", `pipeline { debounce = "fast" }`, "pipeline.debounce", true},
		{"parameters not an object", `parameters = [1, 2]`, "parameters must be an object", true},
		{"parameters with variables", `parameters = { n = var.n }`, "parameters", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.hcl", tc.content)
			_, err := NewLoader().Load(context.Background(), nil, path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			if tc.invalid {
				assert.ErrorIs(t, err, config.ErrInvalid)
			}
		})
	}
}
