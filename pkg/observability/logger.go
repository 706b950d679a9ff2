package observability

import (
	"context"
	"time"
)

// SanitizerFunc rewrites a field value before it reaches a sink.
type SanitizerFunc func(key string, value any) any

// ErrorNotifier delivers error entries to an out-of-band channel such as an SNS topic.
type ErrorNotifier interface {
	Notify(ctx context.Context, entry LogEntry) error
}

// LogEntry is one logged line with the scope it was emitted under.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Stack     string `json:"stack,omitempty"`
	Command   string `json:"command,omitempty"`
}

// StructuredLogger is the logging surface shared by the CLI, the synthesizer and the smoke checker.
//
// Implementations sanitize messages and fields before they reach a sink.
type StructuredLogger interface {
	Debug(message string, fields ...map[string]any)
	Info(message string, fields ...map[string]any)
	Warn(message string, fields ...map[string]any)
	Error(message string, fields ...map[string]any)

	WithField(key string, value any) StructuredLogger
	WithFields(fields map[string]any) StructuredLogger

	WithRequestID(requestID string) StructuredLogger
	WithStack(stackName string) StructuredLogger
	WithCommand(command string) StructuredLogger

	// Flush writes buffered output and delivers pending error notifications.
	Flush(ctx context.Context) error
	Close() error
}

// LoggerConfig configures the CLI logger.
//
// The Notify* fields only apply when an ErrorNotifier is attached.
type LoggerConfig struct {
	Format       string `json:"format"`
	Level        string `json:"level"`
	EnableCaller bool   `json:"enable_caller"`

	NotifyAttempts int           `json:"notify_attempts"`
	NotifyBackoff  time.Duration `json:"notify_backoff"`
	NotifyQueue    int           `json:"notify_queue"`
}
