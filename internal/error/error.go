// internal/error/error.go

package error

import (
	"errors"
	"fmt"
)

type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

type ErrorType int

const (
	ConfigError ErrorType = iota
	CryptoError
	ValidationError
	BackendError

	// Session failures. Only TransientPollFailure is retried automatically.
	OpenFailure
	TransientPollFailure
	RemoteClosed
	CommandFailure
	TeardownFailure
)

func (t ErrorType) String() string {
	switch t {
	case ConfigError:
		return "config"
	case CryptoError:
		return "crypto"
	case ValidationError:
		return "validation"
	case BackendError:
		return "backend"
	case OpenFailure:
		return "open"
	case TransientPollFailure:
		return "poll"
	case RemoteClosed:
		return "remote-closed"
	case CommandFailure:
		return "command"
	case TeardownFailure:
		return "teardown"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(errType ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Is reports whether err carries an *AppError of the given type anywhere in its chain.
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Reason returns the innermost message worth showing to a user.
func Reason(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
