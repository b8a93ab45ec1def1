// Package apperr defines the typed error taxonomy returned by the board,
// card, reaction, and presence services. Stores return the most primitive
// Kind they can determine; services may refine it, but a Kind never
// silently becomes another.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it (map it to
// a status code, decide whether to retry, etc).
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	LimitExceeded
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case LimitExceeded:
		return "limit_exceeded"
	case RateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Sub-kinds. These are carried on Error.Sub and only meaningful alongside
// their parent Kind; they are plain strings rather than another enum
// layer so new ones don't require touching this package.
const (
	SubBoard     = "board"
	SubCard      = "card"
	SubColumn    = "column"
	SubUser      = "user"
	SubReaction  = "reaction"
	SubBoardClosed          = "board_closed"
	SubCircularRelationship = "circular_relationship"
	SubDuplicateKey         = "duplicate_key"
	SubCardLimit            = "card_limit"
	SubReactionLimit        = "reaction_limit"
)

// Error is the concrete error type every service and store returns.
type Error struct {
	Kind    Kind
	Sub     string // optional sub-kind, see the Sub* constants
	Message string
	Current int // populated for LimitExceeded
	Limit   int // populated for LimitExceeded
	err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.err != nil {
		return e.err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Internal error that preserves the original cause for
// errors.Is/errors.As while presenting a sanitized message to the caller.
// Use this at store boundaries for conditions the caller can't act on.
func Wrap(err error, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), err: err}
}

// WithSub sets the sub-kind on an existing Error and returns it for chaining.
func (e *Error) WithSub(sub string) *Error {
	e.Sub = sub
	return e
}

// NotFoundf is a convenience constructor for the common NotFound+sub case.
func NotFoundf(sub, format string, args ...any) *Error {
	return New(NotFound, format, args...).WithSub(sub)
}

// Forbiddenf is a convenience constructor for Forbidden errors; Message
// should name the minimal detail a client needs to react (e.g. which role
// was required).
func Forbiddenf(format string, args ...any) *Error {
	return New(Forbidden, format, args...)
}

// Conflictf is a convenience constructor for Conflict errors.
func Conflictf(sub, format string, args ...any) *Error {
	return New(Conflict, format, args...).WithSub(sub)
}

// LimitExceededf builds a LimitExceeded error carrying current/limit so
// callers can render them without re-querying.
func LimitExceededf(sub string, current, limit int) *Error {
	return &Error{
		Kind:    LimitExceeded,
		Sub:     sub,
		Message: fmt.Sprintf("%s limit exceeded: %d/%d", sub, current, limit),
		Current: current,
		Limit:   limit,
	}
}

// Is reports whether err is an *Error of the given Kind. It does not
// compare sub-kinds; callers that need sub-kind granularity should use
// errors.As and inspect Sub directly.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
