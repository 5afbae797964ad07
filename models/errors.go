package models

import (
	"errors"
	"fmt"
)

// Error codes used in logs and internal error handling.
const (
	ErrCodeNavTimeout   = "NAV_TIMEOUT"
	ErrCodeRoleNotBound = "ROLE_NOT_BOUND"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeTabOpen      = "TAB_OPEN_FAILED"
	ErrCodeTabClose     = "TAB_CLOSE_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeSink         = "SINK_FAILURE"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// ErrNotFound marks the expected absence of an element within its bounded
// wait. Callers fall back (default value, skip) instead of recovering.
// Any other error reaching the pipeline is unexpected and triggers tab-state
// recovery. Match with errors.Is.
var ErrNotFound = errors.New("not found")

// SweepError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type SweepError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *SweepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SweepError) Unwrap() error {
	return e.Err
}

// NewSweepError creates a new SweepError.
func NewSweepError(code, message string, err error) *SweepError {
	return &SweepError{Code: code, Message: message, Err: err}
}

// CodeOf returns the SweepError code of err, or "" when err carries none.
func CodeOf(err error) string {
	var se *SweepError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
