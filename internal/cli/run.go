package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/respawn/internal/api"
	"github.com/charliek/respawn/internal/config"
	"github.com/charliek/respawn/internal/daemon"
	"github.com/charliek/respawn/internal/domain"
	"github.com/charliek/respawn/internal/logs"
	"github.com/charliek/respawn/internal/metrics"
	"github.com/charliek/respawn/internal/supervisor"
)

// runOptions holds the run command flags. Only flags the user set
// override the config file.
type runOptions struct {
	delay           string
	logFile         string
	shutdownTimeout string
	envFile         string
	apiAddr         string
	detach          bool
}

var runOpts runOptions

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [target] [args...]",
	Short: "Supervise a program, restarting it whenever it exits",
	Long: `Start the target program and restart it every time it exits, after a
fixed delay. Each start, exit and wait is written to the console and
appended to the log file.

The target comes from the command line or from the config file. Everything
after the target is passed to it unchanged.

Examples:
  respawn run ./server                      # Restart ./server 5s after each exit
  respawn run --delay 1s ./worker --queue a # Custom delay, args for the worker
  respawn run -d ./server                   # Run in the background
  respawn run --api-addr 127.0.0.1:5556 ./server`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	// Flags after the target belong to the target
	flags.SetInterspersed(false)
	flags.StringVar(&runOpts.delay, "delay", "", "Pause between an exit and the next start (default 5s)")
	flags.StringVar(&runOpts.logFile, "log-file", "", "Append-only supervision log (default respawn.log)")
	flags.StringVar(&runOpts.shutdownTimeout, "shutdown-timeout", "", "Grace period before the child is killed on shutdown (default 10s)")
	flags.StringVar(&runOpts.envFile, "env-file", "", "Env file loaded into the child's environment")
	flags.StringVar(&runOpts.apiAddr, "api-addr", "", "Serve the status API on this address (off by default)")
	flags.BoolVarP(&runOpts.detach, "detach", "d", false, "Run in background (daemon mode)")
}

// apply overlays the flags the user set, and the positional target, onto cfg
func (o runOptions) apply(cfg *config.Config, changed func(name string) bool, args []string) {
	if changed("delay") {
		cfg.RestartDelay = o.delay
	}
	if changed("log-file") {
		cfg.LogFile = o.logFile
	}
	if changed("shutdown-timeout") {
		cfg.ShutdownTimeout = o.shutdownTimeout
	}
	if changed("env-file") {
		cfg.EnvFile = o.envFile
	}
	if changed("api-addr") {
		cfg.API.Addr = o.apiAddr
	}
	if len(args) > 0 {
		cfg.Target = args[0]
		cfg.Args = args[1:]
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	runOpts.apply(cfg, cmd.Flags().Changed, args)

	if err := config.Validate(cfg); err != nil {
		return err
	}

	dir, err := workDir()
	if err != nil {
		return err
	}

	if err := daemon.CleanupStaleFiles(dir); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("respawn is already running in %s (use 'respawn stop' first)", dir)
		}
		return fmt.Errorf("cleaning up stale state: %w", err)
	}

	if runOpts.detach && !daemon.IsDetachedChild() {
		pid, err := daemon.Detach(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "respawn started in background (pid %d)\n", pid)
		fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", daemon.OutputPath(dir))
		return nil
	}

	return supervise(cmd.Context(), cfg, dir, cmd.OutOrStdout())
}

// supervise runs the supervision loop for cfg until a termination signal
// arrives or ctx is cancelled. Runtime state lives under dir.
func supervise(ctx context.Context, cfg *config.Config, dir string, console io.Writer) error {
	proc, err := cfg.ToDomainProcess()
	if err != nil {
		return err
	}
	delay, err := cfg.RestartDelayDuration()
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}

	if err := daemon.EnsureStateDir(dir); err != nil {
		return err
	}
	pidFile := daemon.NewPIDFile(daemon.PIDPath(dir))
	if err := pidFile.Create(); err != nil {
		if errors.Is(err, daemon.ErrPIDFileLocked) {
			return fmt.Errorf("respawn is already running in %s", dir)
		}
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		if err := daemon.CleanupStateDir(dir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to clean up state: %v\n", err)
		}
	}()

	events := logs.NewManager(logs.ManagerConfig{
		FilePath: cfg.LogFile,
		Console:  console,
		Errors:   os.Stderr,
	})
	defer events.Close()

	collector := metrics.NewCollector()

	// The tracker needs the run ID, so it is created after the supervisor
	// but before Run; the recorder looks it up lazily.
	var tracker *daemon.Tracker
	recorder := supervisor.MultiRecorder{
		events,
		collector,
		supervisor.RecorderFunc(func(event domain.SupervisionEvent) {
			if tracker != nil {
				tracker.Record(event)
			}
		}),
	}

	sup := supervisor.New(supervisor.SupervisorConfig{
		Process:         proc,
		RestartDelay:    delay,
		ShutdownTimeout: shutdownTimeout,
	}, supervisor.NewExecRunner(), recorder)

	var apiServer *api.Server
	if cfg.API.Addr != "" {
		handlers := api.NewHandlers(sup, events, collector.Handler(), cfg.Path())
		apiServer = api.NewServer(api.ServerConfig{
			Addr:       cfg.API.Addr,
			Middleware: []func(http.Handler) http.Handler{collector.Middleware},
			Quiet:      !verbose,
		}, handlers)
		if err := apiServer.Listen(); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		go func() {
			if err := apiServer.Serve(); err != nil {
				fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "API server: http://%s (read only)\n", apiServer.Addr())
	}

	initial := daemon.State{
		PID:        os.Getpid(),
		RunID:      sup.RunID(),
		Target:     proc.Target,
		StartedAt:  time.Now(),
		LogFile:    cfg.LogFile,
		ConfigFile: cfg.Path(),
	}
	if apiServer != nil {
		initial.APIAddr = apiServer.Addr()
	}
	tracker, err = daemon.NewTracker(dir, initial, func(err error) {
		fmt.Fprintf(os.Stderr, "warning: failed to update state file: %v\n", err)
	})
	if err != nil {
		shutdownAPI(apiServer)
		return fmt.Errorf("writing state file: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopForwarding := supervisor.ForwardSignals(sup, cancel, func(sig os.Signal) {
		fmt.Fprintf(os.Stderr, "\nReceived %s, stopping %s...\n", sig, proc.Target)
	})
	defer stopForwarding()

	err = sup.Run(ctx)
	shutdownAPI(apiServer)

	// Run only returns once supervision was cancelled
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// shutdownAPI stops the status API, if one is running
func shutdownAPI(server *api.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping API server: %v\n", err)
	}
}
