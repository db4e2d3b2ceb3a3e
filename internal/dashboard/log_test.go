package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_NewestFirst(t *testing.T) {
	l := NewLog(5)
	l.Add(LevelInfo, "one")
	l.Add(LevelSuccess, "two")
	l.Add(LevelError, "three")

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].Message)
	assert.Equal(t, LevelError, entries[0].Level)
	assert.Equal(t, "one", entries[2].Message)
	assert.Equal(t, uint64(3), entries[0].Seq)
}

func TestLog_EvictsOldest(t *testing.T) {
	l := NewLog(0)
	require.Equal(t, DefaultLogCapacity, l.Cap())

	for i := 1; i <= 51; i++ {
		l.Addf(LevelInfo, "entry %d", i)
	}

	entries := l.Entries()
	assert.Len(t, entries, 50)
	assert.Equal(t, 50, l.Len())
	assert.Equal(t, uint64(51), l.Total())
	assert.Equal(t, "entry 51", entries[0].Message)
	assert.Equal(t, "entry 2", entries[49].Message)
}

func TestLog_NeverExceedsCapacity(t *testing.T) {
	l := NewLog(DefaultLogCapacity)
	for i := 0; i < 500; i++ {
		l.Add(LevelWarning, fmt.Sprint(i))
		require.LessOrEqual(t, l.Len(), DefaultLogCapacity)
	}
	assert.Equal(t, "499", l.Entries()[0].Message)
}

func TestLog_Timestamps(t *testing.T) {
	l := NewLog(3)
	fixed := time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	e := l.Add(LevelInfo, "x")
	assert.Equal(t, fixed, e.At)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "success", LevelSuccess.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "error", LevelError.String())
}
