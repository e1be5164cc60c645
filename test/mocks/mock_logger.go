package mocks

import (
	"fmt"
	"sync"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string
	Message string
}

// MockLogger records every log call instead of writing it anywhere.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (m *MockLogger) Debug(format string, args ...any) { m.record("debug", format, args) }
func (m *MockLogger) Info(format string, args ...any) { m.record("info", format, args) }
func (m *MockLogger) Warn(format string, args ...any) { m.record("warn", format, args) }
func (m *MockLogger) Error(format string, args ...any) { m.record("error", format, args) }
func (m *MockLogger) Fatal(format string, args ...any) { m.record("fatal", format, args) }

func (m *MockLogger) record(level, format string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, LogEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Messages returns the messages logged at level.
func (m *MockLogger) Messages(level string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
