// Package zap is the CLI's structured logger: zap output plus optional error notifications.
package zap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theory-cloud/apigwmock/pkg/observability"
	"github.com/theory-cloud/apigwmock/pkg/sanitization"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"

	defaultNotifyAttempts = 3
	defaultNotifyBackoff  = 200 * time.Millisecond
	defaultNotifyQueue    = 64
)

type Option func(*loggerOptions)

type loggerOptions struct {
	initErr error

	zapLogger *ubzap.Logger
	output    io.Writer
	sanitizer observability.SanitizerFunc
	notifier  observability.ErrorNotifier
}

// WithZapLogger writes through a prebuilt zap logger, ignoring Format, Level and WithOutput.
func WithZapLogger(logger *ubzap.Logger) Option {
	return func(opts *loggerOptions) {
		opts.zapLogger = logger
	}
}

// WithOutput directs encoded entries to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(opts *loggerOptions) {
		opts.output = w
	}
}

func WithSanitizer(fn observability.SanitizerFunc) Option {
	return func(opts *loggerOptions) {
		opts.sanitizer = fn
	}
}

// WithErrorNotifier queues every Error entry for notifier; Flush and Close deliver the queue.
func WithErrorNotifier(notifier observability.ErrorNotifier) Option {
	return func(opts *loggerOptions) {
		opts.notifier = notifier
	}
}

// sink is shared by a Logger and every logger derived from it.
type sink struct {
	zl       *ubzap.Logger
	sanitize observability.SanitizerFunc

	notifier observability.ErrorNotifier
	attempts int
	backoff  time.Duration
	capacity int

	mu      sync.Mutex
	pending []observability.LogEntry
	dropped int
	closed  bool
}

type scope struct {
	requestID string
	stack     string
	command   string
}

// Logger implements observability.StructuredLogger on zap.
type Logger struct {
	sink   *sink
	zl     *ubzap.Logger
	fields map[string]any
	scope  scope
}

var _ observability.StructuredLogger = (*Logger)(nil)

func NewZapLogger(config observability.LoggerConfig, options ...Option) (observability.StructuredLogger, error) {
	opts := &loggerOptions{
		output:    os.Stderr,
		sanitizer: sanitization.SanitizeFieldValue,
	}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	if opts.initErr != nil {
		return nil, opts.initErr
	}

	zl := opts.zapLogger
	if zl == nil {
		built, err := buildZapLogger(config, opts.output)
		if err != nil {
			return nil, err
		}
		zl = built
	}

	s := &sink{
		zl:       zl,
		sanitize: opts.sanitizer,
		notifier: opts.notifier,
		attempts: config.NotifyAttempts,
		backoff:  config.NotifyBackoff,
		capacity: config.NotifyQueue,
	}
	if s.sanitize == nil {
		s.sanitize = sanitization.SanitizeFieldValue
	}
	if s.attempts <= 0 {
		s.attempts = defaultNotifyAttempts
	}
	if s.backoff <= 0 {
		s.backoff = defaultNotifyBackoff
	}
	if s.capacity <= 0 {
		s.capacity = defaultNotifyQueue
	}

	return &Logger{sink: s, zl: zl, fields: map[string]any{}}, nil
}

func buildZapLogger(config observability.LoggerConfig, out io.Writer) (*ubzap.Logger, error) {
	level, err := parseZapLevel(config.Level)
	if err != nil {
		return nil, err
	}

	enc := zapEncoderConfig(config.EnableCaller)
	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(config.Format)) {
	case "console", "":
		encoder = zapcore.NewConsoleEncoder(enc)
	case "json":
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, fmt.Errorf("observability/zap: unsupported log format %q", config.Format)
	}

	if out == nil {
		out = os.Stderr
	}
	zl := ubzap.New(zapcore.NewCore(encoder, zapcore.AddSync(out), level))
	if config.EnableCaller {
		zl = zl.WithOptions(ubzap.AddCaller(), ubzap.AddCallerSkip(2))
	}
	return zl, nil
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case levelDebug:
		return zapcore.DebugLevel, nil
	case levelInfo, "":
		return zapcore.InfoLevel, nil
	case levelWarn, "warning":
		return zapcore.WarnLevel, nil
	case levelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("observability/zap: unsupported log level %q", level)
	}
}

func zapEncoderConfig(enableCaller bool) zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if enableCaller {
		enc.CallerKey = "caller"
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	}
	return enc
}

func (l *Logger) Debug(message string, fields ...map[string]any) { l.log(levelDebug, message, fields) }
func (l *Logger) Info(message string, fields ...map[string]any)  { l.log(levelInfo, message, fields) }
func (l *Logger) Warn(message string, fields ...map[string]any)  { l.log(levelWarn, message, fields) }
func (l *Logger) Error(message string, fields ...map[string]any) { l.log(levelError, message, fields) }

func (l *Logger) WithField(key string, value any) observability.StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *Logger) WithFields(fields map[string]any) observability.StructuredLogger {
	next := l.derive()
	for k, v := range fields {
		next.fields[k] = v
	}
	next.zl = next.zl.With(l.sink.zapFields(fields)...)
	return next
}

func (l *Logger) WithRequestID(requestID string) observability.StructuredLogger {
	next := l.derive()
	next.scope.requestID = requestID
	next.zl = next.zl.With(ubzap.String("request_id", sanitization.SanitizeLogString(requestID)))
	return next
}

func (l *Logger) WithStack(stackName string) observability.StructuredLogger {
	next := l.derive()
	next.scope.stack = stackName
	next.zl = next.zl.With(ubzap.String("stack", sanitization.SanitizeLogString(stackName)))
	return next
}

func (l *Logger) WithCommand(command string) observability.StructuredLogger {
	next := l.derive()
	next.scope.command = command
	next.zl = next.zl.With(ubzap.String("command", sanitization.SanitizeLogString(command)))
	return next
}

// Flush syncs zap and delivers queued error notifications, giving up on retries once ctx is done.
func (l *Logger) Flush(ctx context.Context) error {
	if l == nil || l.sink == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deliverErr := l.sink.deliver(ctx)
	return errors.Join(deliverErr, l.sink.zl.Sync())
}

// Close delivers what is still queued, then stops accepting entries.
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	err := l.Flush(context.Background())
	l.sink.mu.Lock()
	l.sink.closed = true
	l.sink.pending = nil
	l.sink.mu.Unlock()
	return err
}

func (l *Logger) derive() *Logger {
	next := *l
	next.fields = make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		next.fields[k] = v
	}
	return &next
}

func (l *Logger) log(level, message string, fieldSets []map[string]any) {
	if l == nil || l.sink == nil || l.zl == nil || l.sink.isClosed() {
		return
	}

	message = sanitization.SanitizeLogString(message)
	call := map[string]any{}
	for _, set := range fieldSets {
		for k, v := range set {
			call[k] = v
		}
	}

	zf := l.sink.zapFields(call)
	switch level {
	case levelDebug:
		l.zl.Debug(message, zf...)
	case levelWarn:
		l.zl.Warn(message, zf...)
	case levelError:
		l.zl.Error(message, zf...)
		l.sink.enqueue(l.entry(level, message, call))
	default:
		l.zl.Info(message, zf...)
	}
}

// entry builds the notification payload: derived fields overridden by call fields, sanitized.
func (l *Logger) entry(level, message string, call map[string]any) observability.LogEntry {
	fields := make(map[string]any, len(l.fields)+len(call))
	for k, v := range l.fields {
		fields[k] = l.sink.sanitize(k, v)
	}
	for k, v := range call {
		fields[k] = l.sink.sanitize(k, v)
	}
	return observability.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Fields:    fields,
		RequestID: l.scope.requestID,
		Stack:     l.scope.stack,
		Command:   l.scope.command,
	}
}

func (s *sink) zapFields(fields map[string]any) []ubzap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]ubzap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, ubzap.Any(k, s.sanitize(k, v)))
	}
	return out
}

func (s *sink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *sink) enqueue(entry observability.LogEntry) {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.pending) >= s.capacity {
		s.dropped++
		return
	}
	s.pending = append(s.pending, entry)
}

func (s *sink) deliver(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	s.mu.Lock()
	pending, dropped := s.pending, s.dropped
	s.pending, s.dropped = nil, 0
	s.mu.Unlock()

	var errs []error
	for _, entry := range pending {
		if err := s.send(ctx, entry); err != nil {
			s.zl.Warn("error notification failed",
				ubzap.String("notify_message", entry.Message),
				ubzap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	if dropped > 0 {
		s.zl.Warn("error notifications dropped", ubzap.Int("dropped", dropped), ubzap.Int("queue", s.capacity))
		errs = append(errs, fmt.Errorf("observability/zap: %d error notifications dropped", dropped))
	}
	return errors.Join(errs...)
}

func (s *sink) send(ctx context.Context, entry observability.LogEntry) error {
	for attempt := 1; ; attempt++ {
		err := s.notifier.Notify(ctx, entry)
		if err == nil {
			return nil
		}
		if attempt >= s.attempts {
			return err
		}
		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
