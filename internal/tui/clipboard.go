package tui

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nopickie/nopickie/internal/dashboard"
	"github.com/nopickie/nopickie/internal/stats"
)

// copyText copies text to the system clipboard.
func copyText(text, command string) error {
	cmd := detectClipboardCommand(command)
	if cmd == "" {
		return fmt.Errorf("no clipboard command available")
	}

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return fmt.Errorf("invalid clipboard command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)

	return c.Run()
}

// detectClipboardCommand returns the configured command, or the first of
// wl-copy, xclip and xsel found on PATH.
func detectClipboardCommand(configured string) string {
	if configured != "" {
		return configured
	}

	if _, err := exec.LookPath("wl-copy"); err == nil {
		return "wl-copy"
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}
	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}

	return ""
}

// formatLog renders log entries oldest first, one per line.
func formatLog(entries []dashboard.Entry) string {
	var b strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(&b, "%s [%s] %s\n", e.At.Format(time.DateTime), e.Level, e.Message)
	}
	return b.String()
}

// formatReport renders the statistics snapshot as YAML.
func formatReport(s stats.Snapshot) (string, error) {
	data, err := yaml.Marshal(s.Report())
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(data), nil
}
