package observability

import "context"

type noopLogger struct{}

var _ StructuredLogger = noopLogger{}

// NewNoOpLogger returns a logger that discards everything.
func NewNoOpLogger() StructuredLogger {
	return noopLogger{}
}

func (n noopLogger) Debug(string, ...map[string]any) {}
func (n noopLogger) Info(string, ...map[string]any)  {}
func (n noopLogger) Warn(string, ...map[string]any)  {}
func (n noopLogger) Error(string, ...map[string]any) {}

func (n noopLogger) WithField(string, any) StructuredLogger     { return n }
func (n noopLogger) WithFields(map[string]any) StructuredLogger { return n }
func (n noopLogger) WithRequestID(string) StructuredLogger      { return n }
func (n noopLogger) WithStack(string) StructuredLogger          { return n }
func (n noopLogger) WithCommand(string) StructuredLogger        { return n }
func (n noopLogger) Flush(context.Context) error                { return nil }
func (n noopLogger) Close() error                               { return nil }
