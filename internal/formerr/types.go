package formerr

import (
	"errors"
	"fmt"
)

// Error is a field-identity or write-back failure with enough context to be
// reported per field.
type Error struct {
	Type    ErrorType `json:"type"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// ErrorType categorizes failures of the identity and write-back engine
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeMissingStructuralMapping
	ErrorTypeSectionPageMismatch
	ErrorTypeUnknownFieldKind
	ErrorTypeInvalidSelectionValue
	ErrorTypeTargetFieldAbsent
	ErrorTypeMutationFailed
	ErrorTypeDocumentLoad
	ErrorTypeInvalidArtifact
)

// Error implements the error interface
func (e *Error) Error() string {
	var msg string
	if e.Field != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Field, e.Message)
	} else {
		msg = fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeMissingStructuralMapping:
		return "MISSING_STRUCTURAL_MAPPING"
	case ErrorTypeSectionPageMismatch:
		return "SECTION_PAGE_MISMATCH"
	case ErrorTypeUnknownFieldKind:
		return "UNKNOWN_FIELD_KIND"
	case ErrorTypeInvalidSelectionValue:
		return "INVALID_SELECTION_VALUE"
	case ErrorTypeTargetFieldAbsent:
		return "TARGET_FIELD_ABSENT"
	case ErrorTypeMutationFailed:
		return "MUTATION_FAILED"
	case ErrorTypeDocumentLoad:
		return "DOCUMENT_LOAD"
	case ErrorTypeInvalidArtifact:
		return "INVALID_ARTIFACT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets ErrorType appear by name in JSON reports.
func (et ErrorType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// UnmarshalText parses the names written by MarshalText. Unknown names
// decode to ErrorTypeUnknown.
func (et *ErrorType) UnmarshalText(b []byte) error {
	name := string(b)
	for t := ErrorTypeUnknown; t <= ErrorTypeInvalidArtifact; t++ {
		if t.String() == name {
			*et = t
			return nil
		}
	}
	*et = ErrorTypeUnknown
	return nil
}

// IsRecoverable reports whether a failure of this type is handled inside a
// batch (reported per field) rather than aborting the run.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeDocumentLoad, ErrorTypeInvalidArtifact:
		return false
	default:
		return true
	}
}

// New creates an Error for the given field
func New(errorType ErrorType, field, message string) *Error {
	return &Error{Type: errorType, Field: field, Message: message}
}

// Newf creates an Error with a formatted message
func Newf(errorType ErrorType, field, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as an Error of the given type
func Wrap(errorType ErrorType, field string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errorType, Field: field, Message: "operation failed", Err: err}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given ErrorType anywhere in its chain.
func Is(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}
