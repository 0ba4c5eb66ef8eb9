package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the upstream rejected our credentials. It applies to
	// every symbol, so the run stops retrieving.
	ErrUnauthorized = errors.New("credentials rejected by data source")
	// ErrSourceUnavailable means the upstream circuit is open
	ErrSourceUnavailable = errors.New("data source unavailable")

	ErrInsufficientHistory = errors.New("insufficient history")
	ErrDuplicateTimestamp  = errors.New("duplicate bar timestamp")
)

// RetrievalError is a per-symbol failure to obtain bars. Description is the
// upstream's own human-readable message and is reported as is.
type RetrievalError struct {
	Symbol      string
	Description string
	Err         error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s: %s", e.Symbol, e.Description)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// InvalidParameterError is a configuration error detected before any retrieval
type InvalidParameterError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Name, e.Reason)
}

// InvalidParameter builds an *InvalidParameterError
func InvalidParameter(name, format string, args ...any) error {
	return &InvalidParameterError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// SinkError is a failure to persist or deliver a computed report
type SinkError struct {
	Stage string // persist or notify
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("report %s: %v", e.Stage, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err affects every symbol rather than one
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSourceUnavailable)
}

// Describe returns the text to put in a failure record. RetrievalError
// descriptions are passed through untouched.
func Describe(err error) string {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Description
	}
	return err.Error()
}
