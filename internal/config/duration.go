package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is written in TOML as a string: a Go duration ("3s", "1m30s") or
// a bare number of milliseconds ("3000").
type Duration time.Duration

// UnmarshalText parses either form.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return fmt.Errorf("empty duration")
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(ms) * Duration(time.Millisecond)
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q (want \"3s\", \"500ms\" or milliseconds): %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText writes the Go duration form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
