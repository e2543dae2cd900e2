package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorscope/internal/testutil"
)

func init() {
	color.NoColor = true
}

type result struct {
	out, errOut string
	err         error
}

func run(t *testing.T, srv *testutil.Server, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	if srv != nil {
		args = append([]string{"--server", srv.URL, "--ws", srv.WSURL()}, args...)
	}
	err := Execute(context.Background(), args, &out, &errOut)
	if err != nil {
		t.Logf("command error: %v\nstderr:\n%s", err, errOut.String())
	}
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
	assert.Equal(t, code, exitErr.Code)
}

func TestHelp(t *testing.T) {
	r := run(t, nil, "--help")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Usage:")
	for _, sub := range []string{"scenarios", "layout", "watch", "tensor"} {
		assert.Contains(t, r.out, sub)
	}
}

func TestScenarios(t *testing.T) {
	srv := testutil.NewServer(t)
	r := run(t, srv, "scenarios")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "ID")
	assert.Contains(t, r.out, "diamond  Diamond  Two branches joined again")
}

func TestLayout_Text(t *testing.T) {
	srv := testutil.NewServer(t)
	r := run(t, srv, "layout", "diamond", "--highlight", "A.out")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "layer 0: *A (0, 50)")
	assert.Contains(t, r.out, "layer 1: *B (250, 0)  *C (250, 100)")
	assert.Contains(t, r.out, "layer 2: D (500, 50)")
	assert.Contains(t, r.out, "_input")
	assert.Contains(t, r.out, "crossings: 0  size: 500x100")
}

func TestLayout_JSON(t *testing.T) {
	srv := testutil.NewServer(t)
	r := run(t, srv, "layout", "diamond", "--json", "--refine", "--highlight", "A.out")
	require.NoError(t, r.err)

	var report layoutReport
	require.NoError(t, sonic.ConfigStd.Unmarshal([]byte(r.out), &report))
	assert.Equal(t, "diamond", report.Scenario)
	require.Len(t, report.Layers, 3)
	assert.Equal(t, []layoutNode{{ID: "D", Layer: 2, X: 500, Y: 50}}, report.Layers[2])
	assert.Len(t, report.Warnings, 1)
	assert.Empty(t, report.Unresolved)
	assert.Zero(t, report.Crossings)
	require.NotNil(t, report.Highlight)
	assert.Equal(t, []string{"A", "B", "C"}, report.Highlight.Nodes)
	assert.Equal(t, []int{1, 2}, report.Highlight.Edges)
}

func TestLayout_Errors(t *testing.T) {
	srv := testutil.NewServer(t)

	r := run(t, srv, "layout", "nope")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "not found")

	r = run(t, srv, "layout", "diamond", "--highlight", "A")
	requireExitCode(t, r.err, 2)

	r = run(t, srv, "layout")
	requireExitCode(t, r.err, 2)
}

func TestTensor(t *testing.T) {
	srv := testutil.NewServer(t)

	r := run(t, srv, "tensor", "D.out")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "D.out 2x2 float64")
	assert.Contains(t, r.out, "  [1,2]\n  [3,4]\n")

	r = run(t, srv, "tensor", "D.out", "--rows", "1:2", "--cols", "0:")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "D.out 1x2 of 2x2 rows 1:2 cols 0:2")
	assert.Contains(t, r.out, "  [3,4]\n")

	r = run(t, srv, "tensor", "D.out", "--summary")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "D.out vector 3 float64")
	assert.Contains(t, r.out, "source = rest")

	r = run(t, srv, "tensor", "D.out", "--rows", "3:1")
	requireExitCode(t, r.err, 2)
}

func TestParseRange(t *testing.T) {
	ptr := func(n int) *int { return &n }
	testCases := []struct {
		in        string
		wantStart int
		wantEnd   *int
		wantErr   bool
	}{
		{"", 0, nil, false},
		{"2:5", 2, ptr(5), false},
		{"2:", 2, nil, false},
		{":5", 0, ptr(5), false},
		{"4", 4, ptr(5), false},
		{"x:2", 0, nil, true},
		{"-1:2", 0, nil, true},
		{"5:2", 0, nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			start, end, err := parseRange(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, start)
			assert.Equal(t, tc.wantEnd, end)
		})
	}
}

func TestWatch(t *testing.T) {
	srv := testutil.NewServer(t)
	r := run(t, srv, "watch", "diamond", "--set", "n=4", "--set", "solver=svd", "--subscribe", "B.out", "--for", "1500ms")
	require.NoError(t, r.err)

	assert.Contains(t, r.out, "Diamond")
	assert.Contains(t, r.out, "connection: connected")
	assert.Contains(t, r.out, "run finished with 1 tensor(s)")
	assert.Contains(t, r.out, "param n = 4")
	assert.Contains(t, r.out, "param solver = svd")
	assert.Contains(t, r.out, "B.out vector 3 source=subscribed")

	var subscribed []any
	for _, m := range srv.ReceivedOfType("subscribe") {
		subscribed = append(subscribed, m["tensor_id"])
	}
	assert.Contains(t, subscribed, "D.out")
	assert.Contains(t, subscribed, "B.out")

	updates := srv.ReceivedOfType("update_param")
	assert.Len(t, updates, 2)
}

func TestWatch_Errors(t *testing.T) {
	srv := testutil.NewServer(t)
	testCases := []struct {
		name string
		args []string
	}{
		{"malformed set", []string{"watch", "diamond", "--set", "n"}},
		{"unknown parameter", []string{"watch", "diamond", "--set", "size=4"}},
		{"out of range", []string{"watch", "diamond", "--set", "n=11"}},
		{"not an option", []string{"watch", "diamond", "--set", "solver=lu"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, srv, append(tc.args, "--for", "2s")...)
			requireExitCode(t, r.err, 2)
		})
	}
}

func TestGlobalFlagErrors(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"client.yaml": "log: {}\n"})
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"scenarios", "--not-a-flag"}},
		{"bad log level", []string{"--log-level", "loud", "scenarios"}},
		{"bad transport", []string{"--transport", "grpc", "scenarios"}},
		{"bad server url", []string{"--server", "localhost", "scenarios"}},
		{"unsupported config format", []string{"--config", dir + "/client.yaml", "scenarios"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, nil, tc.args...)
			requireExitCode(t, r.err, 2)
		})
	}

	r := run(t, nil, "--config", dir+"/missing.hcl", "scenarios")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "error accessing config")
}

func TestConfigFile(t *testing.T) {
	srv := testutil.NewServer(t)
	dir := testutil.WriteFiles(t, map[string]string{
		"client.toml": `
			[server]
			url = "` + srv.URL + `"

			[layout]
			horizontal_spacing = 100.0
			vertical_spacing = 10.0
		`,
	})
	r := run(t, nil, "--config", dir+"/client.toml", "layout", "diamond")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "layer 2: D (200, 5)")
}

func TestUnreachableBackend(t *testing.T) {
	r := run(t, nil, "--server", "http://127.0.0.1:1", "scenarios")
	require.Error(t, r.err)
	var exitErr *ExitError
	assert.False(t, errors.As(r.err, &exitErr), "runtime failures keep the default exit code")
}
