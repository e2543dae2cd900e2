package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/vk/tensorscope/internal/app"
	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/ctxlog"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	server     string
	ws         string
	transport  string
	logLevel   string
	logFormat  string
	statusPort int
}

// env is the per-invocation state handed to subcommands.
type env struct {
	out   *syncWriter
	errW  io.Writer
	flags globalFlags
	app   *app.App
}

// syncWriter serializes writes from the session loop and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Execute runs the command line. Command output goes to outW, logs and
// errors to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the tensorscope command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	e := &env{out: &syncWriter{w: outW}, errW: errW}

	root := &cobra.Command{
		Use:   "tensorscope",
		Short: "Explore tensor computations served by a tensor backend",
		Long: "tensorscope lists scenarios, lays out their operator graphs and streams\n" +
			"tensor updates while you change parameters.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	f := root.PersistentFlags()
	f.StringVarP(&e.flags.configPath, "config", "c", "", "Path to an .hcl or .toml config file, or a directory of .hcl files.")
	f.StringVar(&e.flags.server, "server", "", "Backend REST URL (default http://localhost:8000).")
	f.StringVar(&e.flags.ws, "ws", "", "Backend duplex channel URL (default ws://localhost:8000/ws).")
	f.StringVar(&e.flags.transport, "transport", "", "Duplex transport. Options: 'websocket' or 'socketio'.")
	f.StringVar(&e.flags.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&e.flags.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	f.IntVar(&e.flags.statusPort, "status-port", 0, "Port for the HTTP status server. 0 is disabled.")

	root.AddCommand(
		newScenariosCommand(e),
		newLayoutCommand(e),
		newWatchCommand(e),
		newTensorCommand(e),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the App.
func (e *env) setup(cmd *cobra.Command) error {
	ctx := ctxlog.WithLogger(cmd.Context(), slog.Default())
	cfg, err := app.LoadConfig(ctx, e.flags.configPath)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return usageError("%v", err)
		}
		return err
	}

	f := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = strings.TrimSpace(v)
		}
	}
	override("server", &cfg.Server.URL, e.flags.server)
	override("ws", &cfg.Server.WSURL, e.flags.ws)
	override("transport", &cfg.Server.Transport, strings.ToLower(e.flags.transport))
	override("log-level", &cfg.Log.Level, strings.ToLower(e.flags.logLevel))
	override("log-format", &cfg.Log.Format, strings.ToLower(e.flags.logFormat))
	if f.Changed("status-port") {
		cfg.Status.Port = e.flags.statusPort
	}

	a, err := app.NewApp(e.errW, cfg)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return usageError("%v", err)
		}
		return err
	}
	e.app = a
	a.Logger().Debug("CLI setup complete.", "command", cmd.Name())
	return nil
}

// commandContext returns the command context carrying the application logger.
func (e *env) commandContext(cmd *cobra.Command) context.Context {
	return ctxlog.WithLogger(cmd.Context(), e.app.Logger())
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// exactArgs is cobra.ExactArgs with a usage exit code.
func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError("%s expects %s, got %d argument(s)", cmd.CommandPath(), what, len(args))
		}
		return nil
	}
}
