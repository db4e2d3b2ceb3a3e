package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/backend/transport"
	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/stats"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		logFile    string
		transport  string
		socket     string
	}
	logger    *slog.Logger
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nopickie",
	Short: "Dashboard and statistics for the NoPickie face-touch detector",
	Long: `nopickie controls the NoPickie detection backend.

It starts and stops detection, shows the backend's live state and activity,
and reports daily and weekly trigger statistics.

Running nopickie without a subcommand launches the interactive TUI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			// config init may be replacing a broken file
			if !cmd.HasParent() || cmd.Parent().Name() != "config" {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = config.DefaultConfig()
		}

		if globalOpts.transport != "" {
			cfg.Backend.Transport = globalOpts.transport
		}
		if globalOpts.socket != "" {
			cfg.Backend.Socket = globalOpts.socket
		}
		if globalOpts.transport != "" || globalOpts.socket != "" {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		logFile := globalOpts.logFile
		if logFile == "" {
			logFile = cfg.LogFilePath()
		}
		// The TUI owns the terminal
		if logFile == "" && (!cmd.HasParent() || cmd.Name() == "tui") {
			logFile = config.DefaultLogPath()
		}
		return setupLogger(logFile)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/nopickie/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logFile, "log-file", "",
		"Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&globalOpts.transport, "transport", "",
		"Backend transport (process, socket, dbus; default from config)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.socket, "socket", "",
		"Backend socket path for the socket transport")
}

// setupLogger configures the global slog logger. An empty path logs to stderr.
func setupLogger(path string) error {
	level := slog.LevelWarn
	if cfg != nil {
		if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
			level = slog.LevelWarn
		}
	}
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var out io.Writer = os.Stderr
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		logCloser = f
	}

	logger = slog.New(slog.NewTextHandler(out, opts))
	slog.SetDefault(logger)
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// withBackend connects to the backend, runs fn and closes the connection.
// When this process owns the detector, triggers are recorded while fn runs.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, client backend.Client, bus *event.Bus) error) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	bus := event.NewBus(logger)
	client, err := transport.Open(ctx, cfg, bus, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to backend: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debug("failed to close backend", "error", err)
		}
	}()

	if transport.OwnsDetector(cfg) {
		recorder := stats.NewRecorder(client, bus, cfg.Backend.Timeout.Duration(), logger)
		recorder.Start()
		defer recorder.Stop()
	}

	return fn(ctx, client, bus)
}
