package testutil

import (
	"strings"
	"sync"

	"metafix/internal/fixer"
)

// LogEntry is one message captured by RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger keeps every message for later assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Debug(msg string, args ...any)   { l.add("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)    { l.add("info", msg, args) }
func (l *RecordingLogger) Success(msg string, args ...any) { l.add("success", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)    { l.add("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any)   { l.add("error", msg, args) }

// Entries returns the messages logged at level, or all messages if level is empty.
func (l *RecordingLogger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether any message at level contains substr.
func (l *RecordingLogger) Contains(level, substr string) bool {
	for _, e := range l.Entries(level) {
		if strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

var _ fixer.Logger = (*RecordingLogger)(nil)
