package waveview

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDestroyed is returned by every operation on a destroyed instance.
var ErrDestroyed = errors.New("waveview: instance destroyed")

// FieldError is one violated configuration field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConfigError reports invalid configuration. Validation checks every
// field before failing, so Violations lists all problems at once.
type ConfigError struct {
	Violations []FieldError
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Error()
	}
	return "waveview: invalid options: " + strings.Join(parts, "; ")
}

// UsageError reports an operation that is invalid in the instance's
// current mode, such as seeking while a bound player owns the position.
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("waveview: %s: %s", e.Op, e.Reason)
}

// NetworkKind classifies asynchronous retrieval failures.
type NetworkKind string

const (
	NetworkFailed     NetworkKind = "network"
	NetworkAborted    NetworkKind = "aborted"
	NetworkCORSDenied NetworkKind = "cors-denied"
	NetworkHTTPStatus NetworkKind = "http-status"
)

// NetworkError reports a failed media retrieval. It is delivered
// through the event stream, never returned from Load, because the
// failure happens after the call.
type NetworkError struct {
	Kind   NetworkKind
	Status int // HTTP status for NetworkHTTPStatus
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Kind == NetworkHTTPStatus {
		return fmt.Sprintf("waveview: load failed (%s %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("waveview: load failed (%s): %v", e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a stream whose complete bytes could not be
// decoded into peaks.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("waveview: decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
