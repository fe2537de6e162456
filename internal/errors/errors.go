package errors

import (
	"errors"
	"fmt"
)

// Exit codes for adminmux
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitConfigError  = 2
	ExitListenError  = 3
	ExitAuthError    = 4
	ExitTransport    = 5
)

// Category classifies where an error came from and how the main loop
// must react to it.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryTransport   Category = "transport"
	CategoryAuth        Category = "auth"
	CategoryAnomaly     Category = "protocol-anomaly"
	CategoryCommand     Category = "command"
	CategoryNegotiation Category = "terminal-negotiation"
	CategoryConfig      Category = "config"
	CategoryListen      Category = "listen"
)

// GatewayError is the base error type for adminmux
type GatewayError struct {
	Code     int
	Category Category
	Message  string
	Cause    error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *GatewayError) ExitCode() int {
	return e.Code
}

// New creates a new GatewayError
func New(code int, category Category, message string) *GatewayError {
	return &GatewayError{
		Code:     code,
		Category: category,
		Message:  message,
	}
}

// Wrap wraps an existing error with a GatewayError
func Wrap(code int, category Category, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:     code,
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// Transport returns an error for a failed socket operation
func Transport(op string, cause error) *GatewayError {
	return Wrap(ExitTransport, CategoryTransport, fmt.Sprintf("transport %s failed", op), cause)
}

// Auth returns an error for rejected credentials
func Auth(user string) *GatewayError {
	return New(ExitAuthError, CategoryAuth, fmt.Sprintf("authentication failed for %s", user))
}

// BackendAuth returns an error for a backend refusing the handshake
func BackendAuth(backend, reason string) *GatewayError {
	msg := fmt.Sprintf("backend %s rejected login", backend)
	if reason != "" {
		msg += ": " + reason
	}
	return New(ExitAuthError, CategoryAuth, msg)
}

// Anomaly returns an error for a structured payload kind nobody consumes
func Anomaly(kind string) *GatewayError {
	return New(ExitGeneralError, CategoryAnomaly, fmt.Sprintf("unexpected payload kind %q", kind))
}

// Command returns an error raised while interpreting a shell command
func Command(line string, cause error) *GatewayError {
	return Wrap(ExitGeneralError, CategoryCommand, fmt.Sprintf("command %q failed", line), cause)
}

// Negotiation returns an error for a terminal that is unusable
func Negotiation(reason string) *GatewayError {
	return New(ExitGeneralError, CategoryNegotiation, "terminal negotiation failed: "+reason)
}

// Config returns an error for configuration issues
func Config(message string, cause error) *GatewayError {
	return Wrap(ExitConfigError, CategoryConfig, message, cause)
}

// Listen returns an error for a listener that could not be opened
func Listen(addr string, cause error) *GatewayError {
	return Wrap(ExitListenError, CategoryListen, fmt.Sprintf("failed to listen on %s", addr), cause)
}

// Validation returns an error for input validation failures
func Validation(message string) *GatewayError {
	return New(ExitConfigError, CategoryConfig, message)
}

// CategoryOf returns the category of the first GatewayError in err's
// chain, or CategoryGeneral.
func CategoryOf(err error) Category {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Category
	}
	return CategoryGeneral
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
