// Package apperr defines the error taxonomy shared by the render path and its transports.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConfiguration    = errors.New("configuration error")
	ErrInvalidInputType = errors.New("invalid input type")
	ErrMissingArgument  = errors.New("missing argument")
	ErrDateTimeParsing  = errors.New("datetime parsing error")
	ErrTemplateSyntax   = errors.New("template syntax error")
	ErrDocumentIO       = errors.New("document i/o error")
	ErrCommandDisabled  = errors.New("command disabled")
	ErrInvalidSpan      = errors.New("invalid selection span")
)

// ConfigurationError reports a malformed setting or persisted settings blob.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvalidInputTypeError is returned when a value cannot be coerced to a datetime.
type InvalidInputTypeError struct {
	Value any
}

func (e *InvalidInputTypeError) Error() string {
	return fmt.Sprintf("invalid input type %T: expected epoch milliseconds, time.Time or datetime value", e.Value)
}

func (e *InvalidInputTypeError) Is(target error) bool { return target == ErrInvalidInputType }

// MissingArgumentError is returned by a filter called without a required argument.
type MissingArgumentError struct {
	Filter   string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: missing required argument %q", e.Filter, e.Argument)
}

func (e *MissingArgumentError) Is(target error) bool { return target == ErrMissingArgument }

// DateTimeParsingError carries the reason and explanation of a failed strict parse.
type DateTimeParsingError struct {
	Input       string
	Format      string
	Reason      string
	Explanation string
}

func (e *DateTimeParsingError) Error() string {
	return fmt.Sprintf("cannot parse %q with format %q: %s: %s", e.Input, e.Format, e.Reason, e.Explanation)
}

func (e *DateTimeParsingError) Is(target error) bool { return target == ErrDateTimeParsing }

// TemplateSyntaxError wraps an engine parse failure.
type TemplateSyntaxError struct {
	Template string
	Err      error
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateSyntaxError) Unwrap() error { return e.Err }

func (e *TemplateSyntaxError) Is(target error) bool { return target == ErrTemplateSyntax }

// DocumentIOError wraps a read or write failure against the vault.
type DocumentIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *DocumentIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentIOError) Unwrap() error { return e.Err }

func (e *DocumentIOError) Is(target error) bool { return target == ErrDocumentIO }

// IsRenderFailure reports whether err belongs to the categories fatal to a single render.
func IsRenderFailure(err error) bool {
	return errors.Is(err, ErrInvalidInputType) ||
		errors.Is(err, ErrMissingArgument) ||
		errors.Is(err, ErrDateTimeParsing) ||
		errors.Is(err, ErrTemplateSyntax)
}
