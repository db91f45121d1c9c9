package policy

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed error-kind taxonomy (§7). Cache, Integration,
// and Timeout are recoverable and must not propagate past the engine
// boundary as fatal; all others are surfaced to the caller.
type ErrorKind string

// The closed set of error kinds.
const (
	KindValidation    ErrorKind = "Validation"
	KindParse         ErrorKind = "Parse"
	KindEvaluation    ErrorKind = "Evaluation"
	KindExpression    ErrorKind = "Expression"
	KindConfig        ErrorKind = "Config"
	KindCache         ErrorKind = "Cache"
	KindIntegration   ErrorKind = "Integration"
	KindTimeout       ErrorKind = "Timeout"
	KindIo            ErrorKind = "Io"
	KindSerialization ErrorKind = "Serialization"
	KindInternal      ErrorKind = "Internal"
)

// Recoverable reports whether errors of this kind must be degraded
// rather than propagated as fatal (§7 propagation policy).
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindCache, KindIntegration, KindTimeout:
		return true
	default:
		return false
	}
}

// Error is the engine's structured error type. It carries an ErrorKind
// plus whichever of the optional detail fields apply to that kind.
type Error struct {
	Kind    ErrorKind
	Message string

	// Field is the offending field path for Validation errors.
	Field string
	// Policy is the offending policy id for Validation/Evaluation errors.
	Policy string
	// Rule is the offending rule id for Validation/Evaluation errors.
	Rule string
	// Pattern is the offending regular expression for Expression errors.
	Pattern string
	// Line is the offending source line for Parse errors, when known.
	Line int

	// Err is the underlying error, when this Error wraps one.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("policy [%s]: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("policy [%s]: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports errors.Is against the package sentinel values below by
// comparing kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Sentinel errors usable with errors.Is(err, policy.ErrValidation), one
// per ErrorKind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrParse         = &Error{Kind: KindParse}
	ErrEvaluation    = &Error{Kind: KindEvaluation}
	ErrExpression    = &Error{Kind: KindExpression}
	ErrConfig        = &Error{Kind: KindConfig}
	ErrCache         = &Error{Kind: KindCache}
	ErrIntegration   = &Error{Kind: KindIntegration}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrIo            = &Error{Kind: KindIo}
	ErrSerialization = &Error{Kind: KindSerialization}
	ErrInternal      = &Error{Kind: KindInternal}
)

// KindOf extracts the ErrorKind from err, if err is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return "", false
}

// Wrap returns a new *Error of the given kind wrapping err.
func Wrap(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
