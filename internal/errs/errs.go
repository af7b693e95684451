// Package errs defines the error taxonomy shared by the ingestion pipeline.
//
// Two kinds matter to callers: transient upstream failures, which the retry
// package is allowed to retry, and configuration errors, which are fatal at
// construction time and never retried. Per-document validation problems are
// recorded in document metadata instead of being raised.
package errs

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError wraps a retryable upstream failure (network errors, timeouts,
// 5xx responses). StatusCode is zero when the failure never produced a response.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream error %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for the given operation.
func Transient(op string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, StatusCode: statusCode, Err: err}
}

// ConfigError indicates missing or invalid client configuration.
// It is fatal at construction time and must never be retried.
type ConfigError struct {
	Field string
	Msg   string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Msg)
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, msg string) error {
	return &ConfigError{Field: field, Msg: msg}
}

// transientPatterns lists substrings of error messages produced by the net
// and http packages for failures that are expected to be retry-recoverable.
var transientPatterns = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"temporary failure",
	"network is unreachable",
	"i/o timeout",
	"EOF",
}

// IsTransient reports whether err is expected to be retry-recoverable.
// TransientError values, net errors, and timeout-shaped failures qualify;
// configuration errors never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}
