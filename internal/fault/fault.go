// Package fault defines the typed failure taxonomy shared by the rendering
// pipeline, the provider adapters, and the HTTP layer.
//
// Every error that leaves a pipeline component carries a [Kind]. Callers use
// [KindOf] to classify an arbitrary error chain and [HTTPStatus] to map it to
// a response status. Errors for a single conversation turn are wrapped in a
// [TurnError] so the caller can tell exactly which turn failed and why.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation marks bad or missing input. Never reaches a provider.
	KindValidation Kind = "validation"

	// KindNotSupported marks a language code outside the supported set.
	KindNotSupported Kind = "not_supported"

	// KindNotFound marks a speaker or voice that cannot be resolved.
	KindNotFound Kind = "not_found"

	// KindEmptyPayload marks a provider call that reported success but
	// produced no usable output.
	KindEmptyPayload Kind = "empty_payload"

	// KindProvider marks a failed upstream call: network, auth, rate limit,
	// quota, or timeout.
	KindProvider Kind = "provider"

	// KindInternal marks an unexpected upstream result shape or a violated
	// invariant.
	KindInternal Kind = "internal"

	// KindCanceled marks work abandoned because the caller went away.
	KindCanceled Kind = "canceled"
)

// StatusClientClosedRequest is the non-standard status logged for requests
// whose client disconnected before a reply was written.
const StatusClientClosedRequest = 499

// String returns the wire name of the kind.
func (k Kind) String() string { return string(k) }

// Error is a classified failure. Op names the operation that failed
// (e.g. "voice.resolve", "synth.synthesize").
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind with no Op set.
// This lets callers write errors.Is(err, fault.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotSupported = &Error{Kind: KindNotSupported}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrEmptyPayload = &Error{Kind: KindEmptyPayload}
	ErrProvider     = &Error{Kind: KindProvider}
	ErrInternal     = &Error{Kind: KindInternal}
	ErrCanceled     = &Error{Kind: KindCanceled}
)

// Validation returns a validation error for op.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotSupported returns a not-supported error for op.
func NotSupported(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotSupported, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error for op.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// EmptyPayload returns an empty-payload error for op.
func EmptyPayload(op, format string, args ...any) *Error {
	return &Error{Kind: KindEmptyPayload, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Provider wraps an upstream failure.
func Provider(op string, err error) *Error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

// Internal returns an internal error for op, optionally wrapping err.
func Internal(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. An
// unclassified [context.Canceled] is [KindCanceled], any other unclassified
// error is [KindInternal]; nil yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// HTTPStatus maps err to the response status the API should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindNotSupported, KindNotFound:
		return http.StatusBadRequest
	case KindProvider:
		if IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case KindEmptyPayload:
		return http.StatusBadGateway
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// TurnError reports the failure of one turn of a conversation render.
type TurnError struct {
	// Index is the zero-based position of the turn in the script.
	Index int

	// Speaker is the speaker name as submitted.
	Speaker string

	// Err is the classified cause.
	Err error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %d (%s): %v", e.Index, e.Speaker, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TurnError) Unwrap() error { return e.Err }

// Kind returns the kind of the underlying cause.
func (e *TurnError) Kind() Kind { return KindOf(e.Err) }

// AtTurn wraps err as a [TurnError] for the given turn.
func AtTurn(index int, speaker string, err error) *TurnError {
	return &TurnError{Index: index, Speaker: speaker, Err: err}
}
