// Package backendtest provides a scriptable backend.Client for tests.
package backendtest

import (
	"context"
	"sync"

	"github.com/nopickie/nopickie/internal/backend"
)

// Fake is an in-memory backend.Client. Each command returns the matching
// field unless the corresponding Err field is set. Calls are recorded in order.
type Fake struct {
	mu sync.Mutex

	StartMessage string
	StopMessage  string
	Today        backend.TodayStats
	Weeks        map[int]backend.WeekStats

	StartErr   error
	StopErr    error
	RecordErrs []error // consumed one per RecordTrigger call
	TodayErr   error
	WeekErr    error
	DebugErr   error
	FolderErr  error

	// WeekGates holds back the WeekStats reply for an offset until the
	// channel is closed.
	WeekGates map[int]chan struct{}

	calls  []string
	offset []int
	closed bool
}

var _ backend.Client = (*Fake)(nil)

// New returns a Fake that answers every command successfully.
func New() *Fake {
	return &Fake{
		StartMessage: "Detection started",
		StopMessage:  "Detection stopped",
		Weeks:        make(map[int]backend.WeekStats),
		WeekGates:    make(map[int]chan struct{}),
	}
}

func (f *Fake) record(cmd string) {
	f.calls = append(f.calls, cmd)
}

// Calls returns the command names received so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how often cmd was received.
func (f *Fake) Count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

// WeekOffsets returns the offsets passed to WeekStats in order.
func (f *Fake) WeekOffsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offset...)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) StartDetection(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(backend.CmdStartDetection)
	if f.StartErr != nil {
		return "", f.StartErr
	}
	return f.StartMessage, nil
}

func (f *Fake) StopDetection(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(backend.CmdStopDetection)
	if f.StopErr != nil {
		return "", f.StopErr
	}
	return f.StopMessage, nil
}

func (f *Fake) RecordTrigger(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(backend.CmdRecordTrigger)
	if len(f.RecordErrs) == 0 {
		return nil
	}
	err := f.RecordErrs[0]
	f.RecordErrs = f.RecordErrs[1:]
	if err == nil {
		return nil
	}
	return err
}

func (f *Fake) TodayStats(context.Context) (backend.TodayStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(backend.CmdGetTodayStats)
	if f.TodayErr != nil {
		return backend.TodayStats{}, f.TodayErr
	}
	return f.Today, nil
}

func (f *Fake) WeekStats(ctx context.Context, weekOffset int) (backend.WeekStats, error) {
	f.mu.Lock()
	f.record(backend.CmdGetWeekStats)
	f.offset = append(f.offset, weekOffset)
	gate := f.WeekGates[weekOffset]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return backend.WeekStats{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WeekErr != nil {
		return backend.WeekStats{}, f.WeekErr
	}
	return f.Weeks[weekOffset], nil
}

func (f *Fake) ToggleDebugWindow(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(backend.CmdToggleDebugWindow)
	return f.DebugErr
}

func (f *Fake) OpenScreenshotsFolder(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(backend.CmdOpenScreenshotsFolder)
	return f.FolderErr
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// SetToday replaces the today reply under the lock.
func (f *Fake) SetToday(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Today = backend.TodayStats{TriggerCount: count}
}

// Counts builds a Days slice from counts; a negative count becomes a nil day.
func Counts(counts ...int) []*backend.DayStats {
	days := make([]*backend.DayStats, len(counts))
	for i, c := range counts {
		if c < 0 {
			continue
		}
		n := c
		days[i] = &backend.DayStats{TriggerCount: &n}
	}
	return days
}
