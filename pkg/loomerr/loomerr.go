// Package loomerr defines the structural error taxonomy used across
// loom (§7 of the spec). Errors are values tagged with a Kind; nothing
// in the runtime string-matches an error message to decide how to
// react to it.
package loomerr

import "errors"

// Kind classifies an error for dispatch purposes. Every recoverable
// failure path in loom produces one of these; Internal is reserved for
// invariant violations and must never originate from adversarial model
// output (tool-call parsing in particular).
type Kind string

const (
	Validation Kind = "validation"
	NotFound   Kind = "not_found"
	Timeout    Kind = "timeout"
	Cancelled  Kind = "cancelled"
	Network    Kind = "network"
	Auth       Kind = "auth"
	RateLimit  Kind = "rate_limit"
	Tool       Kind = "tool"
	Memory     Kind = "memory"
	Internal   Kind = "internal"
)

// Retryable reports whether errors of this kind are retried per §7 and
// §2's provider retry policy: RateLimit and Network are retried with
// backoff, everything else is surfaced immediately.
func (k Kind) Retryable() bool {
	return k == RateLimit || k == Network
}

// Error is the structured error type threaded through loom. It wraps
// an optional underlying cause so errors.Is/errors.As keep working
// across package boundaries.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the given kind, operation label, and
// optional wrapped cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, Internal for any other non-nil error, and the empty Kind for
// nil — never panics.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
