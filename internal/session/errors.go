package session

import "fmt"

// Error codes for session operations.
const (
	ErrCodeConfig       = "CONFIG_ERROR"
	ErrCodeInvalidState = "INVALID_STATE"
	ErrCodeProcess      = "PROCESS_ERROR"
	ErrCodeInstall      = "INSTALL_ERROR"
)

// Error represents a session-specific error with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
