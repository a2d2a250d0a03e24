// Package coreerr defines the error taxonomy shared by every backend
// adapter, query service, and the sync engine: a small fixed set of kinds
// rather than a type per failure site, so callers can branch on Kind
// instead of string-matching error text.
package coreerr

import (
	"errors"
	"fmt"

	"github.com/pdmscore/graphcore/pkg/model"
)

// Kind is one of the seven error categories every component reports.
type Kind int

const (
	// ConnectionError: backend unreachable or authentication failed. Not
	// recoverable by the core; surfaced to the caller.
	ConnectionError Kind = iota
	// QueryError: malformed query or schema mismatch. Indicates a bug or
	// stale schema; never retried.
	QueryError
	// NotFound: the requested key does not exist. Only an error for
	// operations that require an existing parent (e.g. SaveAttrMap);
	// plain lookups report absence by returning (nil, nil) instead.
	NotFound
	// Conflict: competing writes or schema-version drift.
	Conflict
	// Timeout: a per-call timeout was exceeded.
	Timeout
	// UnsupportedOperation: the backend lacks the capability the
	// operation requires.
	UnsupportedOperation
	// PartialFailure: a dual-write whose sides both failed (a single
	// failed side is only logged), or a batch in which some writes failed.
	PartialFailure
)

func (k Kind) String() string {
	switch k {
	case ConnectionError:
		return "ConnectionError"
	case QueryError:
		return "QueryError"
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case Timeout:
		return "Timeout"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	case PartialFailure:
		return "PartialFailure"
	default:
		return "Unknown"
	}
}

// CoreError is the structured error every external surface (CLI, sync
// statistics, adapter methods) returns: a kind, a human message, and
// optional refno/noun context for diagnostics.
type CoreError struct {
	Kind    Kind
	Message string
	Refno   model.Refno
	Noun    string
	Query   string // set on QueryError: the emitted query text
	Wrapped error
}

func (e *CoreError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Refno != model.Unset {
		msg += fmt.Sprintf(" (refno=%s)", e.Refno)
	}
	if e.Noun != "" {
		msg += fmt.Sprintf(" (noun=%s)", e.Noun)
	}
	return msg
}

func (e *CoreError) Unwrap() error { return e.Wrapped }

// New constructs a CoreError of the given kind.
func New(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a CoreError of the given kind that wraps an underlying
// error via %w-style chaining.
func Wrap(kind Kind, err error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithRefno attaches refno context and returns the same error for
// chaining at the call site.
func (e *CoreError) WithRefno(r model.Refno) *CoreError {
	e.Refno = r
	return e
}

// WithNoun attaches noun context and returns the same error for chaining.
func (e *CoreError) WithNoun(noun string) *CoreError {
	e.Noun = noun
	return e
}

// WithQuery attaches the emitted query text, for QueryError diagnostics.
func (e *CoreError) WithQuery(q string) *CoreError {
	e.Query = q
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) a *CoreError,
// returning ok=false for any other error.
func KindOf(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// Is reports whether err is a CoreError of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
