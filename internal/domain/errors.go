package domain

import "errors"

var (
	// ErrNoSources is returned when no sensor address was configured.
	ErrNoSources = errors.New("at least one airdata url is required")
	// ErrMissingField indicates a sensor payload lacked a required field.
	ErrMissingField = errors.New("missing required field")
)

// FetchError reports a failed poll of one source, whatever the cause.
type FetchError struct {
	Err    error
	Source Source
}

func (e *FetchError) Error() string {
	if e == nil || e.Err == nil {
		return "fetch error"
	}
	return "fetch " + string(e.Source) + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }
