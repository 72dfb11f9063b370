// Package logger provides a thread-safe in-memory activity log. The web
// dashboard renders the most recent entries so a demo user can follow what
// the ledger client is doing (reloads, submissions, faucet calls).
package logger

import (
	"fmt"
	"sync"
	"time"
)

// Level classifies an activity entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry represents a single activity message.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Level     Level     `json:"level"`
}

// Logger manages in-memory activity entries, keeping at most maxSize.
type Logger struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// New creates a new logger with the specified max entry count.
func New(maxSize int) *Logger {
	return &Logger{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Log adds a new entry to the logger.
func (l *Logger) Log(level Level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{
		Timestamp: time.Now(),
		Text:      text,
		Level:     level,
	})
	if len(l.entries) > l.maxSize {
		l.entries = l.entries[len(l.entries)-l.maxSize:]
	}
}

// Infof logs a formatted info-level entry.
func (l *Logger) Infof(format string, args ...any) {
	l.Log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warningf logs a formatted warning-level entry.
func (l *Logger) Warningf(format string, args ...any) {
	l.Log(LevelWarning, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error-level entry.
func (l *Logger) Errorf(format string, args ...any) {
	l.Log(LevelError, fmt.Sprintf(format, args...))
}

// Recent returns the most recent n entries (newest first).
func (l *Logger) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	result := make([]Entry, n)
	for i := 0; i < n; i++ {
		result[i] = l.entries[len(l.entries)-1-i]
	}
	return result
}

// All returns all entries (newest first).
func (l *Logger) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Entry, len(l.entries))
	for i := range l.entries {
		result[i] = l.entries[len(l.entries)-1-i]
	}
	return result
}
