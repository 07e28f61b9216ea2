package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/avhost/internal/clock"
	"github.com/roach88/avhost/internal/config"
	"github.com/roach88/avhost/internal/journal"
	"github.com/roach88/avhost/internal/metrics"
	"github.com/roach88/avhost/internal/scheduler"
	"github.com/roach88/avhost/internal/script"
)

// Session end reasons written to the journal.
const (
	endQuit   = "quit"
	endSignal = "signal"
	endError  = "error"
	endNoLoop = "no_loop"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	UpdatesPerSecond int64
	BailThreshold    int64
	Journal          string
	MetricsAddr      string

	// AppDir overrides the bundled module directory (for testing).
	// If empty, the directory of the executable is used.
	AppDir string

	// Clock overrides the system clock (for testing).
	Clock clock.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [script.lua] [args...]",
		Short: "Run a Lua program under the fixed-timestep scheduler",
		Long: `Run a Lua program under the fixed-timestep scheduler.

The main script defaults to main.lua in the current directory. Remaining
arguments are exposed to the script in the global arg table, with arg[0]
set to the script path.

After the main chunk returns, the scheduler loop runs if the script defined
update, draw or idle, until the script calls av.quit() or the process
receives SIGINT or SIGTERM.

Example:
  avhost run
  avhost run game.lua --level 3
  avhost run --journal ./pacing.db --metrics-addr 127.0.0.1:9464 game.lua`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts, args, cmd)
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().Int64Var(&opts.UpdatesPerSecond, "updates-per-second", 0, "logical update rate (overrides config)")
	cmd.Flags().Int64Var(&opts.BailThreshold, "bail-threshold", 0, "catch-up budget per iteration (overrides config)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record pacing to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// resolveConfig layers flags over the config file over defaults.
func (o *RunOptions) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("updates-per-second") {
		cfg.UpdatesPerSecond = o.UpdatesPerSecond
	}
	if flags.Changed("bail-threshold") {
		cfg.BailThreshold = o.BailThreshold
	}
	if flags.Changed("journal") {
		cfg.Journal = o.Journal
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

func runHost(opts *RunOptions, args []string, cmd *cobra.Command) error {
	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return err
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	logger := opts.newLogger(cmd.ErrOrStderr(), cfg.Level())
	slog.SetDefault(logger)

	if len(args) == 0 && cfg.Script != "" {
		args = []string{cfg.Script}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get working directory", err)
	}
	mainFile, workDir, err := script.ResolveMain(args, cwd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve main script", err)
	}
	if _, err := os.Stat(mainFile); err != nil {
		return WrapExitError(ExitCommandError, "main script not found", err)
	}

	clk := opts.Clock
	if clk == nil {
		if clk, err = clock.System(); err != nil {
			return WrapExitError(ExitCommandError, "no monotonic clock", err)
		}
	}

	scriptArgs := []string{mainFile}
	if len(args) > 1 {
		scriptArgs = append(scriptArgs, args[1:]...)
	}
	host, err := script.New(script.Options{
		Args:    scriptArgs,
		AppDir:  opts.appDir(),
		WorkDir: workDir,
		Clock:   clk,
		Stdout:  cmd.OutOrStdout(),
		Logger:  logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create script host", err)
	}
	defer func() {
		if closeErr := host.Close(); closeErr != nil {
			logger.Error("error closing script host", "error", closeErr)
		}
	}()

	schedOpts := []scheduler.Option{scheduler.WithLogger(logger)}

	// Journal
	var (
		jr      *journal.Journal
		rec     *journal.Recorder
		session journal.Session
	)
	if cfg.Journal != "" {
		logger.Info("opening journal", "path", cfg.Journal)
		jr, err = journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := jr.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		session, err = jr.BeginSession(context.WithoutCancel(parentCtx), journal.SessionInfo{
			Script:           mainFile,
			UpdatesPerSecond: cfg.UpdatesPerSecond,
			BailThreshold:    cfg.BailThreshold,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin session", err)
		}
		rec = jr.NewRecorder(session.ID, journal.WithRecorderLogger(logger))
		schedOpts = append(schedOpts, scheduler.WithObserver(rec))
		logger.Info("session started", "id", session.ID)
	}

	// Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		schedOpts = append(schedOpts, scheduler.WithObserver(metrics.New(reg)))
		stop, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer stop()
	}

	sched, err := scheduler.New(clk, host.Hooks(), cfg.Scheduler(), schedOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scheduler", err)
	}
	host.Bind(sched, nil)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := runScript(ctx, host, sched, mainFile, logger)
	reason := endReason(runErr, host)

	if rec != nil {
		// ctx is already cancelled after a signal.
		flushCtx := context.WithoutCancel(parentCtx)
		if err := rec.Flush(flushCtx); err != nil {
			logger.Warn("journal flush failed", "error", err)
		}
		if err := jr.EndSession(flushCtx, session.ID, reason); err != nil {
			logger.Warn("failed to end session", "error", err)
		}
	}

	stats := sched.Stats()
	logger.Info("host stopped",
		"reason", reason,
		"iterations", stats.Iterations,
		"updates", stats.Updates,
		"bails", stats.Bails,
	)

	if runErr == nil || errors.Is(runErr, context.Canceled) {
		return nil
	}
	var serr *script.ScriptError
	if errors.As(runErr, &serr) {
		fmt.Fprintln(cmd.ErrOrStderr(), serr.Detail())
		return WrapExitError(ExitFailure, "script error", runErr)
	}
	return WrapExitError(ExitFailure, "host error", runErr)
}

// runScript executes the main chunk, then drives the loop if the script
// installed any hook and did not quit while loading.
func runScript(ctx context.Context, host *script.Host, sched *scheduler.Scheduler, mainFile string, logger *slog.Logger) error {
	if err := host.DoFile(mainFile); err != nil {
		return err
	}
	if !host.HasHooks() {
		logger.Debug("no hooks defined, not entering the loop")
		return nil
	}
	if host.Quit().IsSet() {
		logger.Debug("quit requested while loading, not entering the loop")
		return nil
	}
	sched.Init()
	return sched.Run(ctx, host.Quit())
}

func endReason(err error, host *script.Host) string {
	switch {
	case errors.Is(err, context.Canceled):
		return endSignal
	case err != nil:
		return endError
	case host.Quit().IsSet():
		return endQuit
	default:
		return endNoLoop
	}
}

// appDir returns the directory searched for bundled av modules.
func (o *RunOptions) appDir() string {
	if o.AppDir != "" {
		return o.AppDir
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// serveMetrics starts the metrics endpoint and returns a function that shuts
// it down.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}
