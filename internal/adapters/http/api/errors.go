package api

import (
	"errors"
	"strings"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrBodyTooLarge    = errors.New("request body too large")
	ErrInvalidJSONBody = errors.New("invalid JSON body")
	ErrMissingTicker   = errors.New("missing ticker")
)

// opError records the handler operation that failed alongside the error kind
// and its cause.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	parts := []string{e.op}
	if e.kind != nil {
		parts = append(parts, e.kind.Error())
	}
	if e.err != nil {
		parts = append(parts, e.err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *opError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

// Wrap attaches op to err. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind attaches op and a sentinel kind to err.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// NewKind returns an error of the given kind for op with no further cause.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}
