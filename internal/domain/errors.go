package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Common domain errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// Remote errors
	ErrInvalidLocator      = errors.New("invalid source locator")
	ErrUnauthorized        = errors.New("source rejected credential")
	ErrRemoteUnavailable   = errors.New("remote unavailable")
	ErrUnexpectedStatus    = errors.New("unexpected status code")
	ErrServerRejectedRange = errors.New("server ignored range request")
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	ErrInvalidContentRange = errors.New("invalid Content-Range header")
	ErrSizeChanged         = errors.New("remote size changed between attempts")
	ErrNetworkInterrupted  = errors.New("network interrupted mid-stream")

	// Local errors
	ErrDiskWriteFailed   = errors.New("disk write failed")
	ErrNotRegularFile    = errors.New("destination is not a regular file")
	ErrExtentMismatch    = errors.New("destination size differs from planned offset")
	ErrInsufficientSpace = errors.New("insufficient space")

	// Controller errors
	ErrIntegrityMismatch      = errors.New("integrity check failed")
	ErrAttemptsExhausted      = errors.New("retry attempts exhausted")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// FailureClass tells the retry loop what to do with a failed attempt.
type FailureClass int

const (
	// ClassFatal aborts the transfer immediately.
	ClassFatal FailureClass = iota
	// ClassRetryable re-plans from the current extent after a backoff.
	ClassRetryable
	// ClassRestart truncates the destination before the next attempt.
	ClassRestart
)

// String returns the class name
func (c FailureClass) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassRestart:
		return "restart"
	default:
		return "fatal"
	}
}

// TransferError is a classified failure raised by one of the transfer components.
// Op names the component that failed (probe, extent, write, verify).
// RetryAfter is a server-suggested minimum delay, zero if none.
type TransferError struct {
	Class      FailureClass
	Op         string
	Err        error
	RetryAfter time.Duration
}

// Error returns the error message
func (e *TransferError) Error() string {
	if e.Op == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Class.String() + " error"
	}
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Class.String() + " error"
}

// Unwrap returns the underlying error
func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a retryable transfer error
func NewRetryableError(op string, err error, retryAfter time.Duration) *TransferError {
	return &TransferError{Class: ClassRetryable, Op: op, Err: err, RetryAfter: retryAfter}
}

// NewRestartError creates a transfer error that requires a full re-fetch
func NewRestartError(op string, err error) *TransferError {
	return &TransferError{Class: ClassRestart, Op: op, Err: err}
}

// NewFatalError creates a transfer error that must not be retried
func NewFatalError(op string, err error) *TransferError {
	return &TransferError{Class: ClassFatal, Op: op, Err: err}
}

// Classify returns the failure class of err.
// Unclassified errors are fatal unless they look like a transient network condition.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassFatal
	}

	var te *TransferError
	if errors.As(err, &te) {
		return te.Class
	}

	// A caller abort ends the transfer; a per-request deadline does not.
	if errors.Is(err, context.Canceled) {
		return ClassFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassRetryable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassRetryable
	}

	return ClassFatal
}

// IsRetryable returns true if the error should be retried from the current extent
func IsRetryable(err error) bool {
	return err != nil && Classify(err) == ClassRetryable
}

// RequiresRestart returns true if the destination must be truncated before retrying
func RequiresRestart(err error) bool {
	return err != nil && Classify(err) == ClassRestart
}

// IsFatal returns true if the transfer must stop
func IsFatal(err error) bool {
	return err != nil && Classify(err) == ClassFatal
}

// GetRetryAfter returns the server-suggested delay if the error carries one
func GetRetryAfter(err error) (time.Duration, bool) {
	var te *TransferError
	if errors.As(err, &te) && te.RetryAfter > 0 {
		return te.RetryAfter, true
	}
	return 0, false
}

// StatusError records an HTTP status that could not be handled.
type StatusError struct {
	Code   int
	Status string
}

// Error returns the error message
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus, e.Code, e.Status)
}

// Unwrap returns ErrUnexpectedStatus
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
