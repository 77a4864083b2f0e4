package remote

import "fmt"

// Error codes for remote-control operations.
const (
	ErrCodeConnectFailed = "CONNECT_FAILED"
	ErrCodeInstallFailed = "INSTALL_FAILED"
	ErrCodeReloadFailed  = "RELOAD_FAILED"
)

// Error represents a remote-control error with a code.
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

// NewError creates a new remote-control error.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
