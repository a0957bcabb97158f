// Package apperr defines the error taxonomy shared by the lifecycle
// packages and the HTTP layer.
package apperr

import "errors"

// Kind classifies a domain failure so the transport layer can pick a status.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_failure"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified domain error. Msg follows the "pkg: message"
// convention used in logs; Public is safe to show to end users.
type Error struct {
	Kind   Kind
	Msg    string
	Public string
	Err    error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, msg, public string) *Error {
	return &Error{Kind: kind, Msg: msg, Public: public}
}

// WithPublic derives an error from sentinel that keeps its kind and
// errors.Is identity but carries a different user-facing message.
func WithPublic(sentinel *Error, public string) error {
	return &Error{
		Kind:   sentinel.Kind,
		Msg:    sentinel.Msg,
		Public: public,
		Err:    sentinel,
	}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the user-facing message of err, or "" when err is
// not a classified error.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Public != "" {
			return e.Public
		}
		return e.Msg
	}
	return ""
}
