package commons

import "errors"

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid state")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEngineUnavailable = errors.New("engine unavailable")
)

// IsBusinessError reports whether err is an expected outcome of a well-formed
// call rather than a failure of the backing store.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthorized)
}
