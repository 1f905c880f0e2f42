package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrIllegalTransition    = errors.New("illegal booking transition")
	ErrSubmissionInProgress = errors.New("booking submission already in progress")
)

// ValidationError is a user-visible rejection. Fields maps a form field to
// its message and may be empty.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return e.Message + ": " + strings.Join(names, ", ")
}

// PaymentError is returned by Submit when the processor rejected the charge.
// The wizard is back on the payment step with Message as LastError.
type PaymentError struct {
	Message string
	Err     error
}

func (e *PaymentError) Error() string { return e.Message }

func (e *PaymentError) Unwrap() error { return e.Err }
