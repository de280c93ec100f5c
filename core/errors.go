package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrTransport is the base error for failed calls to the completion service.
	ErrTransport = errors.New("transport error")

	// ErrStream is the base error for stream-level failures.
	ErrStream = errors.New("stream error")

	// ErrStreamEndedWithoutFinish is returned when a stream closes before a
	// finish frame was decoded.
	ErrStreamEndedWithoutFinish = fmt.Errorf("%w: ended without finish", ErrStream)

	// ErrUnknownTool is reported when the service names a tool the current
	// agent does not declare.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrUnknownAgent is reported when a transfer names an unregistered agent.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrDuplicateAgent is returned when two agents share an id.
	ErrDuplicateAgent = errors.New("duplicate agent")

	// ErrInvalidArguments is reported for undecodable tool call arguments.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrMaxTurnsExceeded is returned when the conversation loop hits its
	// configured turn limit.
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")
)

// ServiceError describes a non-2xx response from the completion service.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

// Unwrap allows errors.Is(err, ErrTransport).
func (e *ServiceError) Unwrap() error { return ErrTransport }

// StreamError carries the message of an explicit error frame.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return "stream error: " + e.Message }

// Unwrap allows errors.Is(err, ErrStream).
func (e *StreamError) Unwrap() error { return ErrStream }
