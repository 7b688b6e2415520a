package models

import (
	"fmt"
	"strings"
)

// Error codes used in API responses and internal error handling.
const (
	ErrBrowserLaunchFailed    = "BROWSER_LAUNCH_FAILED"
	ErrNavTimeout             = "NAV_TIMEOUT"
	ErrNavAborted             = "NAV_ABORTED"
	ErrBannerNotFound         = "BANNER_NOT_FOUND"
	ErrBannerNotClickable     = "BANNER_NOT_CLICKABLE"
	ErrCaptureContextDestroyed = "CAPTURE_CONTEXT_DESTROYED"
	ErrAIFallbackUnavailable  = "AI_FALLBACK_UNAVAILABLE"
	ErrGeoLookupFailed        = "GEO_LOOKUP_FAILED"
	ErrCancelled              = "CANCELLED"
	ErrVerificationMismatch   = "VERIFICATION_MISMATCH"

	ErrInvalidInput = "INVALID_INPUT"
	ErrInternal     = "INTERNAL_ERROR"
	ErrRateLimited  = "RATE_LIMITED"
	ErrUnauthorized = "UNAUTHORIZED"
)

// ErrorDetail is the structured error shape returned from the API.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScanError is the internal error type carrying a stable code, usable both
// for fatal failures and for the degrade-to-partial-result paths the
// orchestrator follows.
type ScanError struct {
	Code      string
	Message   string
	Recoverable bool
	Err       error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError builds a recoverable ScanError (the orchestrator degrades to
// a partial result). Use NewFatalScanError for BROWSER_LAUNCH_FAILED-style
// errors that abort the scan outright.
func NewScanError(code, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Recoverable: true, Err: err}
}

func NewFatalScanError(code, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Recoverable: false, Err: err}
}

func (e *ScanError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// IsBenignCaptureError matches the polling-harness "expected" failures
// called out in the design notes: execution-context teardown during
// navigation is not a real error and must never propagate.
func IsBenignCaptureError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, sub := range []string{"Execution context was destroyed", "Target closed", "context canceled"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
