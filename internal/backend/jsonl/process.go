package jsonl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/nopickie/nopickie/internal/event"
)

// stopGrace is how long a spawned backend gets to exit after stdin closes.
const stopGrace = 3 * time.Second

// ProcessConfig describes a backend started as a child process.
type ProcessConfig struct {
	Command []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// process owns a spawned backend and closes it on Close.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger

	once   sync.Once
	exited chan struct{}
	err    error
}

// Spawn starts the backend process and speaks the line protocol over its
// stdin/stdout. Its stderr is forwarded to the debug log.
func Spawn(ctx context.Context, cfg ProcessConfig, bus *event.Bus, logger *slog.Logger) (*Client, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("backend command is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("transport", "process")

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stderr: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start backend %q: %w", cfg.Command[0], err)
	}
	logger.Info("backend process started", "pid", cmd.Process.Pid, "command", cfg.Command[0])

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		logger: logger,
		exited: make(chan struct{}),
	}

	go forwardStderr(stderr, logger)

	conn := NewConn(stdout, stdin, p, bus, logger)

	go func() {
		<-conn.Done()
		p.err = cmd.Wait()
		close(p.exited)
		if p.err != nil {
			logger.Warn("backend process exited", "error", p.err)
		} else {
			logger.Debug("backend process exited")
		}
	}()

	return NewClient(conn, cfg.Timeout), nil
}

// Close closes stdin and waits for the process, killing it after stopGrace.
func (p *process) Close() error {
	var err error
	p.once.Do(func() {
		if cerr := p.stdin.Close(); cerr != nil {
			p.logger.Debug("failed to close backend stdin", "error", cerr)
		}
		select {
		case <-p.exited:
		case <-time.After(stopGrace):
			p.logger.Warn("backend did not exit, killing", "pid", p.cmd.Process.Pid)
			if kerr := p.cmd.Process.Kill(); kerr != nil {
				err = fmt.Errorf("failed to kill backend: %w", kerr)
			}
		}
	})
	return err
}

func forwardStderr(r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug("backend stderr", "line", scanner.Text())
	}
}
