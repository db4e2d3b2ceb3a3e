// Package stats loads daily and weekly trigger counts from the backend and
// keeps the week navigation state.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nopickie/nopickie/internal/backend"
)

// Direction moves the week offset.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// recordAttempts is how often record_trigger is tried before it is dropped.
const recordAttempts = 2

// Snapshot is what the statistics view renders.
type Snapshot struct {
	Today       int
	TodayLoaded bool
	Offset      int
	WeekLabel   string
	WeekStart   string
	WeekEnd     string
	PrevEnabled bool
	NextEnabled bool
	Chart       *Chart
}

// View holds the statistics display state. Backend calls are made without
// holding the lock so a slow backend never blocks Snapshot.
type View struct {
	backend backend.Client
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	snap       Snapshot
	generation uint64

	// requested counts week requests; target is the offset of the latest one.
	requested uint64
	target    int
}

// NewView creates an empty view.
func NewView(b backend.Client, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{backend: b, logger: logger, now: time.Now}
}

// Snapshot returns the current display state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// PrevEnabled reports whether an older week can be requested.
func (v *View) PrevEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap.PrevEnabled
}

// NextEnabled reports whether a newer week can be requested.
func (v *View) NextEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap.NextEnabled
}

// LoadToday fetches today's count.
func (v *View) LoadToday(ctx context.Context) (int, error) {
	today, err := v.backend.TodayStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load today's stats: %w", err)
	}

	v.mu.Lock()
	v.snap.Today = today.TriggerCount
	v.snap.TodayLoaded = true
	v.mu.Unlock()
	return today.TriggerCount, nil
}

// LoadWeek fetches the week at offset (0 = this week, negative = past) and
// replaces the chart. The offset is not validated here; the navigation flags
// from the previous reply gate what the UI may request. On failure the
// previous week stays displayed. A reply that arrives after a newer request
// was issued is discarded.
func (v *View) LoadWeek(ctx context.Context, offset int) error {
	v.mu.Lock()
	v.requested++
	req := v.requested
	v.target = offset
	v.mu.Unlock()

	week, err := v.backend.WeekStats(ctx, offset)

	v.mu.Lock()
	defer v.mu.Unlock()
	if req != v.requested {
		v.logger.Debug("discarding superseded week reply", "offset", offset, "error", err)
		return nil
	}
	if err != nil {
		v.target = v.snap.Offset
		return fmt.Errorf("failed to load week %d: %w", offset, err)
	}

	v.generation++
	v.snap.Offset = offset
	v.snap.WeekLabel = week.WeekLabel
	v.snap.WeekStart = week.WeekStart
	v.snap.WeekEnd = week.WeekEnd
	v.snap.PrevEnabled = week.CanGoPrev
	v.snap.NextEnabled = week.CanGoNext
	v.snap.Chart = NewChart(week, v.now(), v.generation)

	v.logger.Debug("week stats loaded", "offset", offset, "label", week.WeekLabel, "days", len(week.Days))
	return nil
}

// SwitchWeek moves one week in direction from the most recently requested
// offset and loads it.
func (v *View) SwitchWeek(ctx context.Context, direction Direction) error {
	v.mu.Lock()
	offset := v.target + int(direction)
	v.mu.Unlock()
	return v.LoadWeek(ctx, offset)
}

// Reload reloads the most recently requested week.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	offset := v.target
	v.mu.Unlock()
	return v.LoadWeek(ctx, offset)
}

// RecordTrigger records one trigger, retrying once before dropping it with a
// warning. Today's count is refreshed either way. The returned error is the
// record failure, if both attempts failed.
func (v *View) RecordTrigger(ctx context.Context) error {
	var recordErr error
	for attempt := 1; attempt <= recordAttempts; attempt++ {
		recordErr = v.backend.RecordTrigger(ctx)
		if recordErr == nil {
			break
		}
		if errors.Is(recordErr, context.Canceled) || errors.Is(recordErr, context.DeadlineExceeded) {
			break
		}
		v.logger.Debug("record_trigger failed", "attempt", attempt, "error", recordErr)
	}
	if recordErr != nil {
		v.logger.Warn("dropping trigger record", "error", recordErr)
	}

	if _, err := v.LoadToday(ctx); err != nil {
		v.logger.Warn("failed to refresh today's stats", "error", err)
	}
	return recordErr
}
