package document

import (
	"fmt"
	"sort"

	"github.com/a3tai/formkey/internal/widget"
)

// MemoryField is one field of an in-memory document.
type MemoryField struct {
	Name    string
	Kind    widget.FieldKind
	Value   string
	Checked bool
	// Options are the selection values; States are the per-widget
	// appearance states, which Select never accepts.
	Options  []string
	States   []string
	ReadOnly bool
}

// Memory is an in-memory Document. It tracks which fields were mutated but
// not yet refreshed, so callers can check the refresh step ran.
type Memory struct {
	fields      map[string]*MemoryField
	stale       map[string]bool
	shadowLayer bool
	refreshes   int
}

// NewMemory creates a document from field definitions
func NewMemory(fields ...MemoryField) *Memory {
	m := &Memory{
		fields: make(map[string]*MemoryField, len(fields)),
		stale:  make(map[string]bool),
	}
	for i := range fields {
		f := fields[i]
		m.fields[f.Name] = &f
	}
	return m
}

// WithShadowLayer marks the document as carrying a shadow data layer
func (m *Memory) WithShadowLayer() *Memory {
	m.shadowLayer = true
	return m
}

// HasShadowLayer reports whether the shadow layer is still present
func (m *Memory) HasShadowLayer() bool {
	return m.shadowLayer
}

// Stale returns fields mutated since their last refresh, sorted.
func (m *Memory) Stale() []string {
	out := make([]string, 0, len(m.stale))
	for name := range m.stale {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Refreshes returns how many times RefreshAppearances ran
func (m *Memory) Refreshes() int {
	return m.refreshes
}

func (m *Memory) field(name string) (*MemoryField, error) {
	f, ok := m.fields[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrFieldAbsent)
	}
	return f, nil
}

func (m *Memory) HasField(name string) bool {
	_, ok := m.fields[name]
	return ok
}

func (m *Memory) FieldKind(name string) (widget.FieldKind, error) {
	f, err := m.field(name)
	if err != nil {
		return widget.KindUnknown, err
	}
	return f.Kind, nil
}

func (m *Memory) SetText(name, value string) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	if f.ReadOnly || f.Kind == widget.KindCheckbox || f.Kind == widget.KindSelection {
		return fmt.Errorf("set text on %s %s: %w", f.Kind, name, ErrUnsupported)
	}
	f.Value = value
	m.stale[name] = true
	return nil
}

func (m *Memory) SetChecked(name string, checked bool) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	if f.Kind != widget.KindCheckbox {
		return fmt.Errorf("check %s %s: %w", f.Kind, name, ErrUnsupported)
	}
	f.Checked = checked
	m.stale[name] = true
	return nil
}

func (m *Memory) Options(name string) ([]string, error) {
	f, err := m.field(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), f.Options...), nil
}

func (m *Memory) Select(name, value string) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	if f.Kind != widget.KindSelection && f.Kind != widget.KindDropdown {
		return fmt.Errorf("select on %s %s: %w", f.Kind, name, ErrUnsupported)
	}
	for _, o := range f.Options {
		if o == value {
			f.Value = value
			m.stale[name] = true
			return nil
		}
	}
	return fmt.Errorf("%q for %s: %w", value, name, ErrInvalidOption)
}

func (m *Memory) Value(name string) (string, error) {
	f, err := m.field(name)
	if err != nil {
		return "", err
	}
	return f.Value, nil
}

func (m *Memory) Checked(name string) (bool, error) {
	f, err := m.field(name)
	if err != nil {
		return false, err
	}
	return f.Checked, nil
}

func (m *Memory) RefreshAppearances(names []string) error {
	m.refreshes++
	for _, name := range names {
		delete(m.stale, name)
	}
	return nil
}

func (m *Memory) RemoveShadowLayer() (bool, error) {
	had := m.shadowLayer
	m.shadowLayer = false
	return had, nil
}
