package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while simulating a model.
//
// Runtime errors include:
//   - Unknown element: a rule operand or target has no arena slot
//   - Corrupt expression: the postfix stack underflows or does not reduce
//     to a single value
//   - No groups: a random-asynchronous run has nothing to select
//   - Replay mismatch: a replayed run diverges from its recording
//
// Expressions are checked when a model loads, so the first two indicate a
// model that bypassed the compiler.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Cycle is the 0-based cycle being executed, or -1 outside a cycle.
	Cycle int

	// Element names the rule target being evaluated, when known.
	Element string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownElement indicates an operand or target index outside
	// the element arena.
	ErrCodeUnknownElement RuntimeErrorCode = "UNKNOWN_ELEMENT"

	// ErrCodeCorruptExpression indicates a postfix expression that cannot be
	// reduced to exactly one value.
	ErrCodeCorruptExpression RuntimeErrorCode = "CORRUPT_EXPRESSION"

	// ErrCodeNoGroups indicates a scheduling mode with nothing to run.
	ErrCodeNoGroups RuntimeErrorCode = "NO_GROUPS"

	// ErrCodeInvalidMode indicates an unsupported mode combination.
	ErrCodeInvalidMode RuntimeErrorCode = "INVALID_MODE"

	// ErrCodeReplayMismatch indicates a replayed run that diverged from its
	// recording, or a recording that does not fit the model.
	ErrCodeReplayMismatch RuntimeErrorCode = "REPLAY_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Cycle >= 0 && e.Element != "" {
		return fmt.Sprintf("%s: %s (cycle=%d, element=%s)", e.Code, e.Message, e.Cycle, e.Element)
	}
	if e.Cycle >= 0 {
		return fmt.Sprintf("%s: %s (cycle=%d)", e.Code, e.Message, e.Cycle)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRuntimeError(code RuntimeErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Cycle: -1}
}

// CodeOf returns the RuntimeError code of err, or "" if err is not a
// RuntimeError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsUnknownElement returns true if the error is an unknown element error.
func IsUnknownElement(err error) bool {
	return CodeOf(err) == ErrCodeUnknownElement
}

// IsCorruptExpression returns true if the error is a corrupt expression error.
func IsCorruptExpression(err error) bool {
	return CodeOf(err) == ErrCodeCorruptExpression
}

// IsInvalidMode returns true if the error is a mode combination error.
func IsInvalidMode(err error) bool {
	return CodeOf(err) == ErrCodeInvalidMode
}

// IsReplayMismatch returns true if the error is a replay mismatch error.
func IsReplayMismatch(err error) bool {
	return CodeOf(err) == ErrCodeReplayMismatch
}
