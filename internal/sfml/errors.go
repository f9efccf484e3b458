package sfml

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax matches every lexing/parsing failure.
	ErrSyntax = errors.New("sfml syntax error")
	// ErrValidation matches every cross-reference or value failure.
	ErrValidation = errors.New("sfml validation error")
	// ErrMalformedIndent marks indentation that is not a multiple of two spaces.
	ErrMalformedIndent = errors.New("malformed indent")
)

// SyntaxError reports a line that does not match the grammar.
type SyntaxError struct {
	Line   int
	Reason string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sfml: line %d: %s", e.Line, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// ErrorKind classifies the error for job status mapping.
func (e *SyntaxError) ErrorKind() string { return "syntax" }

// ValidationError reports a well-formed document that is semantically wrong.
// Line is zero for document-level problems.
type ValidationError struct {
	Line   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("sfml: line %d: %s", e.Line, e.Reason)
	}
	return "sfml: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) ErrorKind() string { return "validation" }

// InvalidDeliveryError reports a delivery tag outside the allowed set.
type InvalidDeliveryError struct {
	Line  int
	Value string
}

func (e *InvalidDeliveryError) Error() string {
	return fmt.Sprintf("sfml: line %d: invalid delivery %q (allowed: neutral, calm, urgent, dramatic, shout)", e.Line, e.Value)
}

func (e *InvalidDeliveryError) Is(target error) bool { return target == ErrValidation }

func (e *InvalidDeliveryError) ErrorKind() string { return "validation" }

// EmptyDocumentError reports a document without any speech.
type EmptyDocumentError struct{}

func (e *EmptyDocumentError) Error() string {
	return "sfml: document has no speech segments"
}

func (e *EmptyDocumentError) Is(target error) bool { return target == ErrValidation }

func (e *EmptyDocumentError) ErrorKind() string { return "validation" }

func syntaxf(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

func validationf(line int, format string, args ...any) error {
	return &ValidationError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
