// Package errdef classifies errors so the HTTP layer can map them to a status code without
// knowing the concrete error. Wrapped errors stay reachable via errors.As and errors.Is.
package errdef

import (
	"errors"
	"fmt"
)

func NewForbidden(format string, a ...any) error {
	return forbidden{fmt.Errorf(format, a...)}
}

type forbidden struct{ error }

func (e forbidden) Unwrap() error { return e.error }

func IsForbidden(err error) bool {
	var e forbidden
	return errors.As(err, &e)
}

func NewBadRequest(format string, a ...any) error {
	return badRequest{fmt.Errorf(format, a...)}
}

type badRequest struct{ error }

func (e badRequest) Unwrap() error { return e.error }

func IsBadRequest(err error) bool {
	var e badRequest
	return errors.As(err, &e)
}

func NewUnauthorized(format string, a ...any) error {
	return unauthorized{fmt.Errorf(format, a...)}
}

type unauthorized struct{ error }

func (e unauthorized) Unwrap() error { return e.error }

func IsUnauthorized(err error) bool {
	var e unauthorized
	return errors.As(err, &e)
}

// NewNotFound creates an error representing a resource that could not be found.
func NewNotFound(format string, a ...any) error {
	return notFound{fmt.Errorf(format, a...)}
}

type notFound struct{ error }

func (e notFound) Unwrap() error { return e.error }

// IsNotFound returns true if err is an error representing a resource that could not be found and false otherwise.
func IsNotFound(err error) bool {
	var e notFound
	return errors.As(err, &e)
}

// NewConflict creates an error representing a conflicting state.
func NewConflict(format string, a ...any) error {
	return conflict{fmt.Errorf(format, a...)}
}

type conflict struct{ error }

func (e conflict) Unwrap() error { return e.error }

// IsConflict returns true if err is an error representing a conflict and false otherwise.
func IsConflict(err error) bool {
	var e conflict
	return errors.As(err, &e)
}

func NewUnsupportedMediaType(format string, a ...any) error {
	return unsupportedMediaType{fmt.Errorf(format, a...)}
}

type unsupportedMediaType struct{ error }

func (e unsupportedMediaType) Unwrap() error { return e.error }

func IsUnsupportedMediaType(err error) bool {
	var e unsupportedMediaType
	return errors.As(err, &e)
}

// NewPaymentRequired creates an error representing a billing account that cannot pay for the
// requested resources.
func NewPaymentRequired(format string, a ...any) error {
	return paymentRequired{fmt.Errorf(format, a...)}
}

type paymentRequired struct{ error }

func (e paymentRequired) Unwrap() error { return e.error }

func IsPaymentRequired(err error) bool {
	var e paymentRequired
	return errors.As(err, &e)
}

// NewBadGateway creates an error representing an upstream service we could not talk to.
func NewBadGateway(format string, a ...any) error {
	return badGateway{fmt.Errorf(format, a...)}
}

type badGateway struct{ error }

func (e badGateway) Unwrap() error { return e.error }

func IsBadGateway(err error) bool {
	var e badGateway
	return errors.As(err, &e)
}

// NewUpstream creates an error carrying the HTTP status an upstream service answered with. It is
// reported to our clients with that same status.
func NewUpstream(status int, format string, a ...any) error {
	return upstream{error: fmt.Errorf(format, a...), status: status}
}

type upstream struct {
	error
	status int
}

func (e upstream) Unwrap() error { return e.error }

// UpstreamStatus returns the status of an error created using NewUpstream.
func UpstreamStatus(err error) (int, bool) {
	var e upstream
	if errors.As(err, &e) {
		return e.status, true
	}
	return 0, false
}

// Titled is implemented by errors that name themselves in error responses.
type Titled interface {
	Title() string
}

// Title returns the title of the first error in err's tree implementing Titled.
func Title(err error) (string, bool) {
	var t Titled
	if errors.As(err, &t) {
		return t.Title(), true
	}
	return "", false
}

// Pointed is implemented by errors caused by a specific part of a request body. Pointer returns a
// JSON pointer (RFC 6901) to that part.
type Pointed interface {
	Pointer() string
}

// Pointer returns the JSON pointer of the first error in err's tree implementing Pointed.
func Pointer(err error) (string, bool) {
	var p Pointed
	if errors.As(err, &p) {
		return p.Pointer(), true
	}
	return "", false
}

// WithTitle annotates err with a title used in error responses.
func WithTitle(err error, title string) error {
	return titledError{error: err, title: title}
}

type titledError struct {
	error
	title string
}

func (e titledError) Unwrap() error { return e.error }

func (e titledError) Title() string { return e.title }

// WithPointer annotates err with a JSON pointer to the part of the request that caused it.
func WithPointer(err error, pointer string) error {
	return pointedError{error: err, pointer: pointer}
}

type pointedError struct {
	error
	pointer string
}

func (e pointedError) Unwrap() error { return e.error }

func (e pointedError) Pointer() string { return e.pointer }
