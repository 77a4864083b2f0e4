package install

import "fmt"

// Error codes for install operations.
const (
	ErrCodeNoAddonID    = "NO_ADDON_ID"
	ErrCodeInstallCall  = "INSTALL_CALL_FAILED"
	ErrCodePointerWrite = "POINTER_WRITE_FAILED"
	ErrCodeStatePatch   = "STATE_PATCH_FAILED"
)

// Error represents an install-specific error with a code.
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
