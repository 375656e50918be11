package errors

import "fmt"

// SimError represents a simulation error with a stable machine-readable code
type SimError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *SimError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common errors
var (
	ErrDeviceOffline     = &SimError{Code: "device_offline", Message: "device offline"}
	ErrDeviceNotFound    = &SimError{Code: "device_not_found", Message: "device not found"}
	ErrUnknownCommand    = &SimError{Code: "unknown_command", Message: "unknown command"}
	ErrUnknownDeviceType = &SimError{Code: "unknown_device_type", Message: "unknown device type"}
	ErrInvalidParameter  = &SimError{Code: "invalid_parameter", Message: "invalid parameter"}
	ErrDeviceJammed      = &SimError{Code: "device_jammed", Message: "lock mechanism jammed"}
	ErrChildLockActive   = &SimError{Code: "child_lock_active", Message: "child lock active"}
	ErrPrivacyMode       = &SimError{Code: "privacy_mode_active", Message: "privacy mode active"}
	ErrSimulatedFailure  = &SimError{Code: "simulated_failure", Message: "simulated device failure"}
	ErrImportFailed      = &SimError{Code: "import_failed", Message: "configuration import failed"}
)

// New creates a new SimError
func New(code, message string) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of err carrying additional detail text
func WithDetails(err *SimError, details string) *SimError {
	return &SimError{
		Code:    err.Code,
		Message: err.Message,
		Details: details,
	}
}

// Detailsf is WithDetails with printf formatting
func Detailsf(err *SimError, format string, args ...interface{}) *SimError {
	return WithDetails(err, fmt.Sprintf(format, args...))
}

// IsSimError checks if an error is a SimError
func IsSimError(err error) bool {
	_, ok := err.(*SimError)
	return ok
}

// CodeOf returns the machine code from an error, or "internal_error"
// when the error does not carry one.
func CodeOf(err error) string {
	if simErr, ok := err.(*SimError); ok {
		return simErr.Code
	}
	return "internal_error"
}
