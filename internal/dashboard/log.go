package dashboard

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLogCapacity is the number of entries the activity log keeps.
const DefaultLogCapacity = 50

// Level is the severity of a log entry.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one line of the activity log.
type Entry struct {
	Seq     uint64
	At      time.Time
	Level   Level
	Message string
}

// Log is a fixed-capacity ring of entries, newest first.
// Once full, adding an entry evicts the oldest one.
type Log struct {
	mu    sync.RWMutex
	buf   []Entry
	head  int // index of the next write
	size  int
	total uint64
	now   func() time.Time
}

// NewLog creates a log holding at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{
		buf: make([]Entry, capacity),
		now: time.Now,
	}
}

// Add appends an entry and returns it.
func (l *Log) Add(level Level, message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	e := Entry{Seq: l.total, At: l.now(), Level: level, Message: message}
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
	return e
}

// Addf formats and appends an entry.
func (l *Log) Addf(level Level, format string, args ...any) Entry {
	return l.Add(level, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the retained entries, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, l.size)
	for i := 1; i <= l.size; i++ {
		idx := (l.head - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Total returns how many entries were ever added.
func (l *Log) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
