package executor

import "errors"

var (
	// ErrProtocolViolation is returned when one response carries both a
	// structured result and tool calls. It is not recoverable.
	ErrProtocolViolation = errors.New("response contains both a result and tool calls")

	// ErrEmptyStep is returned for a blank step before any request is made.
	ErrEmptyStep = errors.New("step is empty")
)
