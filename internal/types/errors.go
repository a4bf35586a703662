package types

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the failure categories named in spec §7.
type ErrorKind string

const (
	ErrMissingRequiredInput ErrorKind = "missing_required_input"
	ErrContractViolation    ErrorKind = "contract_violation"
	ErrBackendUnavailable   ErrorKind = "backend_unavailable"
	ErrTimeout              ErrorKind = "timeout"
	ErrGuardrail            ErrorKind = "guardrail"
	ErrInvalidRequest       ErrorKind = "invalid_request"
	ErrInternal             ErrorKind = "internal"
)

// PipelineError is the typed error returned by node dispatch and surfaced
// at the HTTP boundary, grounded on spec §7's error-kind table.
type PipelineError struct {
	Kind ErrorKind
	Node string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s: %v", e.Node, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError wraps err with a kind and the node that produced it.
func NewError(kind ErrorKind, node string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Node: node, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to ErrInternal for
// errors that were never classified.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}
