package domain

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConnection
	KindTransaction
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConnection:
		return "connection"
	case KindTransaction:
		return "transaction"
	case KindDuplicate:
		return "duplicate"
	}
	return "unknown"
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConnection       = &Error{Kind: KindConnection}
	ErrTransaction      = &Error{Kind: KindTransaction}
	ErrDuplicateRequest = &Error{Kind: KindDuplicate}
)

// Error tags a failure with its kind. errors.Is matches any *Error of the
// same kind, so callers compare against the Err* values above.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op string, id int64) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf("item %d not found", id)}
}

func Connection(op string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Msg: "database unavailable", Err: err}
}

func Transaction(op string, err error) error {
	return &Error{Kind: KindTransaction, Op: op, Msg: "transaction failed", Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
