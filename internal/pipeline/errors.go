package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. Only EndpointUnavailable, InputError
// and OutputWriteError abort a run; the rest are counted on the summary.
type Kind string

const (
	ParseSkip           Kind = "ParseSkip"
	FetchTimeout        Kind = "FetchTimeout"
	FetchNetworkError   Kind = "FetchNetworkError"
	FetchHTTPError      Kind = "FetchHTTPError"
	FetchNotLive        Kind = "FetchNotLive"
	ClassifierError     Kind = "ClassifierError"
	EndpointUnavailable Kind = "EndpointUnavailable"
	InputError          Kind = "InputError"
	OutputWriteError    Kind = "OutputWriteError"
)

// CountedKinds are the non-fatal kinds reported on the summary, in report
// order.
var CountedKinds = []Kind{ParseSkip, FetchTimeout, FetchNetworkError, FetchHTTPError, FetchNotLive, ClassifierError}

// StageError is a fatal error tagged with its kind.
type StageError struct {
	Kind Kind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fatal wraps err with kind.
func Fatal(kind Kind, err error) error {
	return &StageError{Kind: kind, Err: err}
}

// KindOf returns the kind of a StageError anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
