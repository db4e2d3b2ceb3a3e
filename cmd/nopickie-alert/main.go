// Package main is the entry point for the nopickie-alert popup daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nopickie/nopickie/internal/config"
)

const (
	appID   = "io.github.nopickie.alert"
	appName = "nopickie-alert"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/nopickie/config.toml)")
	transport := flag.String("transport", "", "Override the backend transport (process, socket, dbus)")
	logFile := flag.String("log-file", "", "Write logs to this file instead of stderr")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Backend.Transport = *transport
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if *logFile == "" {
		*logFile = cfg.LogFilePath()
	}
	logger, closeLog, err := newLogger(cfg.Log.Level, *logFile, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	status := run(cfg, path, logger)
	if status != 0 {
		closeLog()
		os.Exit(status)
	}
}

// run starts the GTK application and blocks until it quits.
func run(cfg *config.Config, configPath string, logger *slog.Logger) int {
	logger.Info("starting "+appName, "version", version, "transport", cfg.Backend.Transport, "surface", cfg.Alert.Surface)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newDaemon(ctx, cfg, configPath, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			d.quit()
		case <-ctx.Done():
		}
	}()

	// Our flags are already parsed; GApplication only sees the program name.
	status := d.app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}
	if err := d.Err(); err != nil {
		logger.Error(appName+" stopped", "error", err)
		return 1
	}

	logger.Info(appName + " stopped")
	return 0
}

func newLogger(levelName, path string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelName))); err != nil {
		level = slog.LevelWarn
	}
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closeFn, nil
}
