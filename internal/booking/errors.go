package booking

import "errors"

// Error kinds. Every error returned by Manager matches exactly one of
// these through errors.Is.
var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not_found")
	ErrCapacity   = errors.New("capacity")
	ErrDuplicate  = errors.New("duplicate")
	ErrTransient  = errors.New("transient")
)

// Error is a classified booking failure with a message safe to show to
// the caller. Err keeps the underlying cause for logging.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }
func notFound(msg string) error   { return &Error{Kind: ErrNotFound, Msg: msg} }
func capacity(msg string) error   { return &Error{Kind: ErrCapacity, Msg: msg} }
func duplicate(msg string) error  { return &Error{Kind: ErrDuplicate, Msg: msg} }

func transient(err error) error {
	return &Error{Kind: ErrTransient, Msg: "could not complete the booking, please try again", Err: err}
}

// KindOf returns the kind of err, or nil when err is not a booking
// error.
func KindOf(err error) error {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return nil
}
