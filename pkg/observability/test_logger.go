package observability

import (
	"context"
	"sync"
	"time"

	"github.com/theory-cloud/apigwmock/pkg/sanitization"
)

// recording is the entry list shared by a TestLogger and everything derived from it.
type recording struct {
	mu      sync.Mutex
	entries []LogEntry
	closed  bool
}

// TestLogger records sanitized entries in memory so tests can assert on lifecycle events.
type TestLogger struct {
	rec    *recording
	fields map[string]any

	requestID string
	stack     string
	command   string
}

var _ StructuredLogger = (*TestLogger)(nil)

func NewTestLogger() *TestLogger {
	return &TestLogger{rec: &recording{}, fields: map[string]any{}}
}

// Entries returns a copy of everything logged so far.
func (l *TestLogger) Entries() []LogEntry {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	return append([]LogEntry(nil), l.rec.entries...)
}

// Messages returns the logged messages in order, optionally filtered by level.
func (l *TestLogger) Messages(level string) []string {
	var out []string
	for _, entry := range l.Entries() {
		if level == "" || entry.Level == level {
			out = append(out, entry.Message)
		}
	}
	return out
}

func (l *TestLogger) Debug(message string, fields ...map[string]any) { l.record("debug", message, fields) }
func (l *TestLogger) Info(message string, fields ...map[string]any)  { l.record("info", message, fields) }
func (l *TestLogger) Warn(message string, fields ...map[string]any)  { l.record("warn", message, fields) }
func (l *TestLogger) Error(message string, fields ...map[string]any) { l.record("error", message, fields) }

func (l *TestLogger) WithField(key string, value any) StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *TestLogger) WithFields(fields map[string]any) StructuredLogger {
	next := l.derive()
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

func (l *TestLogger) WithRequestID(requestID string) StructuredLogger {
	next := l.derive()
	next.requestID = requestID
	return next
}

func (l *TestLogger) WithStack(stackName string) StructuredLogger {
	next := l.derive()
	next.stack = stackName
	return next
}

func (l *TestLogger) WithCommand(command string) StructuredLogger {
	next := l.derive()
	next.command = command
	return next
}

func (l *TestLogger) Flush(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// Close stops recording for this logger and every logger derived from it.
func (l *TestLogger) Close() error {
	l.rec.mu.Lock()
	l.rec.closed = true
	l.rec.mu.Unlock()
	return nil
}

func (l *TestLogger) derive() *TestLogger {
	next := *l
	next.fields = make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		next.fields[k] = v
	}
	return &next
}

func (l *TestLogger) record(level, message string, fieldSets []map[string]any) {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = sanitization.SanitizeFieldValue(k, v)
	}
	for _, set := range fieldSets {
		for k, v := range set {
			fields[k] = sanitization.SanitizeFieldValue(k, v)
		}
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   sanitization.SanitizeLogString(message),
		Fields:    fields,
		RequestID: l.requestID,
		Stack:     l.stack,
		Command:   l.command,
	}

	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	if !l.rec.closed {
		l.rec.entries = append(l.rec.entries, entry)
	}
}
