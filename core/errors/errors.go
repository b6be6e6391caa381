// Package errors provides the error taxonomy shared by the TYCHO model decoder
// and its collaborators.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure class
var (
	// ErrIO indicates the model file could not be opened or read
	ErrIO = errors.New("i/o error")
	// ErrClassification indicates a span of text matched no block pattern
	ErrClassification = errors.New("unclassified text")
	// ErrSequence indicates blocks arrived in an order the format forbids
	ErrSequence = errors.New("block sequence error")
	// ErrDuplicateField indicates a model field was produced twice
	ErrDuplicateField = errors.New("duplicate field")
	// ErrMalformedNumber indicates a numeric token could not be parsed
	ErrMalformedNumber = errors.New("malformed number")
	// ErrUnevenSplit indicates an integer block could not be split evenly
	ErrUnevenSplit = errors.New("uneven split")
	// ErrNotFound indicates a field, header key or quantity does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnitsUncertain indicates a quantity whose units are not known
	ErrUnitsUncertain = errors.New("units uncertain")
)

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "open")
	Path      string // File path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrIO, e.Err}
	}
	return []error{ErrIO}
}

// ClassificationError reports text that no block pattern accepts.
type ClassificationError struct {
	Line int    // 1-based line where the unclassified text starts
	Text string // Offending line, without terminator
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("line %d: cannot classify %q", e.Line, e.Text)
}

func (e *ClassificationError) Unwrap() error {
	return ErrClassification
}

// SequenceError reports a LABEL without data, two labels in a row, or a block
// of the wrong kind following a label.
type SequenceError struct {
	Line    int    // 1-based line of the offending block, 0 at end of input
	Label   string // Pending label, if any
	Message string
}

func (e *SequenceError) Error() string {
	prefix := ""
	if e.Line > 0 {
		prefix = fmt.Sprintf("line %d: ", e.Line)
	}
	if e.Label != "" {
		return fmt.Sprintf("%s%s (label %q)", prefix, e.Message, e.Label)
	}
	return prefix + e.Message
}

func (e *SequenceError) Unwrap() error {
	return ErrSequence
}

// DuplicateFieldError reports a model field that appears a second time.
type DuplicateFieldError struct {
	Field string
	Line  int
}

func (e *DuplicateFieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: duplicate field %q", e.Line, e.Field)
	}
	return fmt.Sprintf("duplicate field %q", e.Field)
}

func (e *DuplicateFieldError) Unwrap() error {
	return ErrDuplicateField
}

// MalformedNumberError reports a token that could not be parsed as a number,
// even after exponent-marker recovery.
type MalformedNumberError struct {
	Token string
	Err   error // Underlying strconv error, if any
}

func (e *MalformedNumberError) Error() string {
	return fmt.Sprintf("malformed number %q", e.Token)
}

func (e *MalformedNumberError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedNumber, e.Err}
	}
	return []error{ErrMalformedNumber}
}

// UnevenSplitError reports an integer block whose token count does not divide
// evenly across its destination fields.
type UnevenSplitError struct {
	Count  int      // Number of integer tokens found
	Fields []string // Destination fields
	Line   int
}

func (e *UnevenSplitError) Error() string {
	return fmt.Sprintf("line %d: %d integers cannot be split evenly across %v", e.Line, e.Count, e.Fields)
}

func (e *UnevenSplitError) Unwrap() error {
	return ErrUnevenSplit
}

// NotFoundError represents a missing field, header key or quantity
type NotFoundError struct {
	Resource string // Type of resource (e.g., "field", "header key", "quantity")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// UnitsError reports a quantity whose units are listed but uncertain.
type UnitsError struct {
	Quantity string
	Note     string
}

func (e *UnitsError) Error() string {
	if e.Note != "" {
		return fmt.Sprintf("units of %q are uncertain: %s", e.Quantity, e.Note)
	}
	return fmt.Sprintf("units of %q are uncertain", e.Quantity)
}

func (e *UnitsError) Unwrap() error {
	return ErrUnitsUncertain
}

// Helper functions for creating common errors

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewSequence creates a SequenceError
func NewSequence(line int, label, message string) *SequenceError {
	return &SequenceError{
		Line:    line,
		Label:   label,
		Message: message,
	}
}

// NewDuplicateField creates a DuplicateFieldError
func NewDuplicateField(field string, line int) *DuplicateFieldError {
	return &DuplicateFieldError{
		Field: field,
		Line:  line,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
