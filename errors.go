package apigwmock

import (
	"errors"
	"fmt"
)

// AppError is a stable, user-facing error with a dotted error code.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError returns an AppError with the given code and message.
func NewError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Errorf returns an AppError with a formatted message.
func Errorf(code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code and message to err. A nil err returns nil.
func WrapError(code, message string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost AppError in err's chain.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps an error to a process exit code for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case ErrorCodeConfigInvalid, ErrorCodeUnresolvedReference, ErrorCodeConfigLoad:
		return 2
	case ErrorCodeSynthFailed, ErrorCodeTemplateInvalid:
		return 3
	case ErrorCodeOutputsMissing, ErrorCodeAWSRequest:
		return 4
	case ErrorCodeSmokeFailed:
		return 5
	default:
		return 1
	}
}

// FromPanic converts a recovered panic value into an AppError with code.
// A nil value returns nil.
func FromPanic(code string, recovered any) error {
	switch v := recovered.(type) {
	case nil:
		return nil
	case *AppError:
		return v
	case error:
		return &AppError{Code: code, Message: "recovered panic", Err: v}
	case string:
		return &AppError{Code: code, Message: v}
	default:
		return &AppError{Code: code, Message: fmt.Sprintf("%v", v)}
	}
}
