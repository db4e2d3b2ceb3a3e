package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/nopickie/nopickie/internal/stats"
)

// Output formats for reports.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("invalid format %q (valid: text, json, yaml)", f)
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// writeToday prints today's count.
func writeToday(w io.Writer, format string, count int) error {
	if format != formatText {
		return writeStructured(w, format, struct {
			TriggerCount int `json:"trigger_count" yaml:"trigger_count"`
		}{count})
	}
	_, err := fmt.Fprintf(w, "Today: %s %s\n", humanize.Comma(int64(count)), plural(count, "trigger", "triggers"))
	return err
}

// writeWeek prints a week report. Days without data are shown as "-".
func writeWeek(w io.Writer, format string, r stats.Report) error {
	if format != formatText {
		return writeStructured(w, format, r)
	}

	var b strings.Builder
	b.WriteString(r.WeekLabel)
	if r.WeekStart != "" {
		fmt.Fprintf(&b, " (%s to %s)", r.WeekStart, r.WeekEnd)
	}
	b.WriteString("\n")
	for _, d := range r.Days {
		count := "-"
		if d.TriggerCount != nil {
			count = humanize.Comma(int64(*d.TriggerCount))
		}
		fmt.Fprintf(&b, "  %-4s %-10s %6s\n", d.Day, d.Date, count)
	}
	fmt.Fprintf(&b, "Total: %s\n", humanize.Comma(int64(r.Total)))

	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
