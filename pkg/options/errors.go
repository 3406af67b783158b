package options

import "errors"

// ParseFailureMessage is the message of every OptionError.
const ParseFailureMessage = "Failed to parse fava-option entry"

var (
	ErrUnknownKey     = errors.New("unknown option key")
	ErrMissingValue   = errors.New("missing option value")
	ErrNotString      = errors.New("option value is not a string")
	ErrInvalidInt     = errors.New("invalid integer")
	ErrInvalidPattern = errors.New("invalid pattern")
)

// OptionError records a directive that could not be applied.
type OptionError struct {
	Source  Meta
	Message string
	Entry   Directive
	// Err is the underlying cause, for diagnostics only.
	Err error
}

func newOptionError(d Directive, cause error) OptionError {
	return OptionError{
		Source:  d.Meta,
		Message: ParseFailureMessage,
		Entry:   d,
		Err:     cause,
	}
}

func (e OptionError) Error() string {
	return e.Source.String() + ": " + e.Message
}

func (e OptionError) Unwrap() error {
	return e.Err
}
