package bridge

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionError reports a transport-level fault that persisted after the
// single allowed retry on a fresh channel.
type ConnectionError struct {
	BaseURL string
	Method  string
	Path    string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Godot bridge at %s is unreachable (%s %s): %v", e.BaseURL, e.Method, e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that the bridge did not answer within the clamped
// request timeout. Timed-out requests are never retried: the server may be
// mid-processing a stateful operation.
type TimeoutError struct {
	Method  string
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Godot did not respond within %s on %s %s - the editor/game may have crashed or is unresponsive",
		e.Timeout, e.Method, e.Path)
}

// StatusError reports a non-2xx application-level response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Godot bridge returned HTTP %d on %s %s", e.StatusCode, e.Method, e.Path)
}

func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}
