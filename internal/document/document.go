// Package document defines the target-document surface the write-back engine
// mutates, plus an in-memory implementation.
package document

import (
	"errors"

	"github.com/a3tai/formkey/internal/widget"
)

var (
	// ErrFieldAbsent means the document has no field with the given name.
	ErrFieldAbsent = errors.New("field not present in document")
	// ErrUnsupported means the field cannot take the requested mutation.
	ErrUnsupported = errors.New("operation not supported for field")
	// ErrInvalidOption means a selection value is not among the field's options.
	ErrInvalidOption = errors.New("value is not an option of field")
)

// Document is a fillable target document addressed by fully qualified field
// name. Implementations mutate sequentially and are not safe for concurrent use.
type Document interface {
	// HasField reports whether a field with this name exists.
	HasField(name string) bool
	// FieldKind returns the live kind of a field.
	FieldKind(name string) (widget.FieldKind, error)
	// SetText sets a text value. Used for text fields and as the generic
	// fallback for fields of unrecognized kind.
	SetText(name, value string) error
	SetChecked(name string, checked bool) error
	// Options returns the selection values a radio group or dropdown accepts,
	// as spelled by the document. Never the per-widget appearance states.
	Options(name string) ([]string, error)
	// Select chooses one of the values returned by Options.
	Select(name, value string) error
	Value(name string) (string, error)
	Checked(name string) (bool, error)
	// RefreshAppearances regenerates the visual representation of the named
	// fields after mutation.
	RefreshAppearances(names []string) error
	// RemoveShadowLayer neutralizes any parallel data layer that could
	// shadow the field values. It reports whether one was present.
	RemoveShadowLayer() (bool, error)
}
