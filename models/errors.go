package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat reports a file that matches no known device format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedInput reports a recognised format with invalid or missing fields.
	ErrMalformedInput = errors.New("malformed input")
	// ErrEmptyInput reports that no readings were extracted from any input.
	ErrEmptyInput = errors.New("empty input")
)

// InputError attaches file and location context to one of the sentinel kinds.
type InputError struct {
	Kind     error
	Path     string
	Location string
	Err      error
}

func (e *InputError) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Location != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Location)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InputError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Malformed builds an ErrMalformedInput error for path at location.
func Malformed(path, location string, err error) error {
	return &InputError{Kind: ErrMalformedInput, Path: path, Location: location, Err: err}
}

// Unsupported builds an ErrUnsupportedFormat error for path.
func Unsupported(path string, err error) error {
	return &InputError{Kind: ErrUnsupportedFormat, Path: path, Err: err}
}
