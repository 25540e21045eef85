package widget

import (
	"fmt"
	"math"
	"strings"
)

// Rect is a widget rectangle in source units
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rounded returns the rectangle with every component rounded to 2 decimals.
func (r Rect) Rounded() Rect {
	return Rect{
		X:      round2(r.X),
		Y:      round2(r.Y),
		Width:  round2(r.Width),
		Height: round2(r.Height),
	}
}

// Close reports whether every component of r and o differs by at most eps.
func (r Rect) Close(o Rect, eps float64) bool {
	return math.Abs(r.X-o.X) <= eps &&
		math.Abs(r.Y-o.Y) <= eps &&
		math.Abs(r.Width-o.Width) <= eps &&
		math.Abs(r.Height-o.Height) <= eps
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TypeCode is the raw widget type reported by the extraction pass
type TypeCode int

const (
	TypeUnknown   TypeCode = 0
	TypeButton    TypeCode = 1
	TypeCheckbox  TypeCode = 2
	TypeCombobox  TypeCode = 3
	TypeListbox   TypeCode = 4
	TypeRadio     TypeCode = 5
	TypeSignature TypeCode = 6
	TypeText      TypeCode = 7
)

// Kind maps the raw type code onto the editable field kinds.
func (t TypeCode) Kind() FieldKind {
	switch t {
	case TypeText:
		return KindText
	case TypeCheckbox:
		return KindCheckbox
	case TypeRadio:
		return KindSelection
	case TypeCombobox, TypeListbox:
		return KindDropdown
	default:
		return KindUnknown
	}
}

// FieldKind is the tagged union of field kinds the write-back engine handles
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindText
	KindCheckbox
	KindSelection
	KindDropdown
)

// String returns the canonical name of the kind
func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindCheckbox:
		return "Checkbox"
	case KindSelection:
		return "Selection"
	case KindDropdown:
		return "Dropdown"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the kind by name
func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name; unrecognized names become KindUnknown.
func (k *FieldKind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// ParseKind parses a kind name case-insensitively
func ParseKind(s string) FieldKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText
	case "checkbox":
		return KindCheckbox
	case "selection", "radio":
		return KindSelection
	case "dropdown", "combobox", "listbox":
		return KindDropdown
	default:
		return KindUnknown
	}
}

// Widget is one raw mark-up annotation instance. Immutable once extracted.
type Widget struct {
	StableID    string   `json:"stableId"`
	Page        int      `json:"page"`
	Rect        Rect     `json:"rect"`
	RawTypeCode TypeCode `json:"rawTypeCode"`
	FieldName   string   `json:"fieldName"`
	RawLabel    string   `json:"rawLabel,omitempty"`

	// Location hints carried by some extraction passes; never authoritative.
	Section    string  `json:"section,omitempty"`
	Subsection *string `json:"subsection,omitempty"`
	Entry      *int    `json:"entry,omitempty"`
}

// Validate checks the fields every downstream component relies on
func (w Widget) Validate() error {
	if w.FieldName == "" {
		return fmt.Errorf("widget %q has no field name", w.StableID)
	}
	if w.StableID == "" {
		return fmt.Errorf("widget for field %q has no stable id", w.FieldName)
	}
	if w.Page < 1 {
		return fmt.Errorf("widget %q has invalid page %d", w.StableID, w.Page)
	}
	return nil
}

// LogicalField is the set of widgets sharing one field name
type LogicalField struct {
	FieldName   string   `json:"fieldName"`
	WidgetIDs   []string `json:"widgetIds"`
	Rects       []Rect   `json:"rects"`
	Page        int      `json:"page"`
	RawTypeCode TypeCode `json:"rawTypeCode"`
	RawLabel    string   `json:"rawLabel,omitempty"`
}

// Representative returns the id and geometry of the first-seen widget.
func (f LogicalField) Representative() (id string, page int, rect Rect) {
	if len(f.WidgetIDs) > 0 {
		id = f.WidgetIDs[0]
	}
	if len(f.Rects) > 0 {
		rect = f.Rects[0]
	}
	return id, f.Page, rect
}
