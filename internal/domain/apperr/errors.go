package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrMalformedUpstream = errors.New("malformed upstream response")
	ErrPersistence       = errors.New("persistence error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrBusy              = errors.New("operation already in progress")
)

// Error is a categorized failure. Message is user-facing, Raw keeps upstream text
// for diagnostics and Err the underlying cause.
type Error struct {
	Kind    error
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != nil:
		return e.Kind.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Quota signals the free-tier limit; clients show an upgrade prompt instead of an error banner.
func Quota(msg string) *Error {
	return &Error{Kind: ErrQuotaExceeded, Message: msg}
}

func Malformed(raw string, err error) *Error {
	return &Error{Kind: ErrMalformedUpstream, Message: "upstream returned invalid JSON", Raw: raw, Err: err}
}

// Persistence wraps a storage failure. The cause stays in Err and is never shown to clients.
func Persistence(op string, err error) *Error {
	return &Error{Kind: ErrPersistence, Message: "could not " + op + ", storage is temporarily unavailable; please retry", Err: err}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Busy(msg string) *Error {
	return &Error{Kind: ErrBusy, Message: msg}
}

// KindName returns a stable wire name for err's kind.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrMalformedUpstream):
		return "malformed_upstream_response"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	}
	return "internal_error"
}

// FromKindName rebuilds a categorized error from its wire form.
func FromKindName(kind, msg, raw string) error {
	var k error
	switch kind {
	case "validation_error":
		k = ErrValidation
	case "quota_exceeded":
		k = ErrQuotaExceeded
	case "malformed_upstream_response":
		k = ErrMalformedUpstream
	case "persistence_error":
		k = ErrPersistence
	case "unauthorized":
		k = ErrUnauthorized
	case "not_found":
		k = ErrNotFound
	case "busy":
		k = ErrBusy
	default:
		return errors.New(msg)
	}
	return &Error{Kind: k, Message: msg, Raw: raw}
}

// RawText returns the upstream text attached to err, if any.
func RawText(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Raw
	}
	return ""
}
