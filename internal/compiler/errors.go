package compiler

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes load errors.
type ErrorCode string

const (
	// ErrCodeDuplicateElement indicates an element name declared twice.
	ErrCodeDuplicateElement ErrorCode = "DUPLICATE_ELEMENT"

	// ErrCodeUnknownElement indicates a rule target or operand naming an
	// element that was never declared.
	ErrCodeUnknownElement ErrorCode = "UNKNOWN_ELEMENT"

	// ErrCodeMalformedExpression indicates unbalanced parentheses or an
	// operator missing operands.
	ErrCodeMalformedExpression ErrorCode = "MALFORMED_EXPRESSION"

	// ErrCodeInvalidRuleSyntax indicates a rule line matching none of the
	// grammar forms, or an invalid line inside a group.
	ErrCodeInvalidRuleSyntax ErrorCode = "INVALID_RULE_SYNTAX"

	// ErrCodeInvalidElementSyntax indicates a malformed element declaration.
	ErrCodeInvalidElementSyntax ErrorCode = "INVALID_ELEMENT_SYNTAX"

	// ErrCodeProbabilityMass indicates a non-positive or missing weight, a
	// cumulative overflow, or a final sum not equal to 1.
	ErrCodeProbabilityMass ErrorCode = "PROBABILITY_MASS"
)

// LoadError is a fatal error detected while loading a model.
type LoadError struct {
	Code ErrorCode

	// Line is the 1-based source line, 0 when not tied to a line.
	Line int

	// Element names the offending element, when there is one.
	Element string

	Message string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newLoadError(code ErrorCode, line int, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Line: line, Message: fmt.Sprintf(format, args...)}
}

// atLine attaches a line number to a LoadError that has none.
func atLine(err error, line int) error {
	var le *LoadError
	if errors.As(err, &le) && le.Line == 0 {
		cp := *le
		cp.Line = line
		return &cp
	}
	return err
}

// CodeOf returns the LoadError code of err, or "" if err is not a LoadError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsDuplicateElement returns true if err is a duplicate element error.
func IsDuplicateElement(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateElement
}

// IsUnknownElement returns true if err is an unknown element error.
func IsUnknownElement(err error) bool {
	return CodeOf(err) == ErrCodeUnknownElement
}

// IsMalformedExpression returns true if err is a malformed expression error.
func IsMalformedExpression(err error) bool {
	return CodeOf(err) == ErrCodeMalformedExpression
}

// IsInvalidRuleSyntax returns true if err is a rule syntax error.
func IsInvalidRuleSyntax(err error) bool {
	return CodeOf(err) == ErrCodeInvalidRuleSyntax
}

// IsProbabilityMass returns true if err is a probability mass error.
func IsProbabilityMass(err error) bool {
	return CodeOf(err) == ErrCodeProbabilityMass
}
