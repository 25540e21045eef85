package acroform

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"

	"github.com/a3tai/formkey/internal/document"
	"github.com/a3tai/formkey/internal/widget"
)

const offState = "Off"

var _ document.Document = (*Form)(nil)

func (f *Form) lookup(name string) (*field, error) {
	fld, ok := f.fields[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, document.ErrFieldAbsent)
	}
	return fld, nil
}

func (f *Form) HasField(name string) bool {
	_, ok := f.fields[name]
	return ok
}

func (f *Form) FieldKind(name string) (widget.FieldKind, error) {
	fld, err := f.lookup(name)
	if err != nil {
		return widget.KindUnknown, err
	}
	return fld.typeCode.Kind(), nil
}

// SetText writes /V as a text string. Buttons, signatures and choice fields
// are refused.
func (f *Form) SetText(name, value string) error {
	fld, err := f.lookup(name)
	if err != nil {
		return err
	}
	if fld.flags&flagReadOnly != 0 {
		return fmt.Errorf("%s is read-only: %w", name, document.ErrUnsupported)
	}
	if fld.typeCode != widget.TypeText {
		return fmt.Errorf("%s is not a text field: %w", name, document.ErrUnsupported)
	}
	fld.dict["V"] = types.StringLiteral(encodeText(value))
	return nil
}

func (f *Form) SetChecked(name string, checked bool) error {
	fld, err := f.lookup(name)
	if err != nil {
		return err
	}
	if fld.typeCode != widget.TypeCheckbox {
		return fmt.Errorf("%s is not a checkbox: %w", name, document.ErrUnsupported)
	}
	if fld.flags&flagReadOnly != 0 {
		return fmt.Errorf("%s is read-only: %w", name, document.ErrUnsupported)
	}

	state := offState
	if checked {
		state = "Yes"
		for _, k := range fld.kids {
			if on := f.onState(k.dict); on != "" {
				state = on
				break
			}
		}
	}
	fld.dict["V"] = types.Name(state)
	for _, k := range fld.kids {
		if checked && f.onState(k.dict) != state {
			k.dict["AS"] = types.Name(offState)
			continue
		}
		k.dict["AS"] = types.Name(state)
	}
	return nil
}

// Options returns the export values of a radio group or choice field. Radio
// groups without /Opt fall back to their widgets' on-state names.
func (f *Form) Options(name string) ([]string, error) {
	fld, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	switch fld.typeCode {
	case widget.TypeRadio:
		if opts := f.optValues(fld.dict); len(opts) > 0 {
			return opts, nil
		}
		return f.kidStates(fld), nil
	case widget.TypeCombobox, widget.TypeListbox:
		return f.optValues(fld.dict), nil
	default:
		return nil, fmt.Errorf("%s has no options: %w", name, document.ErrUnsupported)
	}
}

func (f *Form) Select(name, value string) error {
	fld, err := f.lookup(name)
	if err != nil {
		return err
	}
	if fld.flags&flagReadOnly != 0 {
		return fmt.Errorf("%s is read-only: %w", name, document.ErrUnsupported)
	}
	switch fld.typeCode {
	case widget.TypeRadio:
		return f.selectRadio(fld, value)
	case widget.TypeCombobox, widget.TypeListbox:
		if !contains(f.optValues(fld.dict), value) && fld.flags&flagCombo == 0 {
			return fmt.Errorf("%s: %q: %w", name, value, document.ErrInvalidOption)
		}
		fld.dict["V"] = types.StringLiteral(encodeText(value))
		return nil
	default:
		return fmt.Errorf("%s is not a selection: %w", name, document.ErrUnsupported)
	}
}

// selectRadio maps an export value to the on-state of the matching widget.
// With /Opt the widget is found by option index; otherwise the value is the
// on-state name itself.
func (f *Form) selectRadio(fld *field, value string) error {
	state := ""
	if opts := f.optValues(fld.dict); len(opts) > 0 {
		for i, o := range opts {
			if o == value && i < len(fld.kids) {
				state = f.onState(fld.kids[i].dict)
				break
			}
		}
	} else if contains(f.kidStates(fld), value) {
		state = value
	}
	if state == "" {
		return fmt.Errorf("%s: %q: %w", fld.name, value, document.ErrInvalidOption)
	}

	fld.dict["V"] = types.Name(state)
	for _, k := range fld.kids {
		if f.onState(k.dict) == state {
			k.dict["AS"] = types.Name(state)
		} else {
			k.dict["AS"] = types.Name(offState)
		}
	}
	return nil
}

// Value returns the field value. Radio values are reported as export values,
// never as appearance state names.
func (f *Form) Value(name string) (string, error) {
	fld, err := f.lookup(name)
	if err != nil {
		return "", err
	}
	switch fld.typeCode {
	case widget.TypeRadio:
		state := f.nameEntry(fld.dict, "V")
		if state == "" || state == offState {
			return "", nil
		}
		if opts := f.optValues(fld.dict); len(opts) > 0 {
			for i, k := range fld.kids {
				if i < len(opts) && f.onState(k.dict) == state {
					return opts[i], nil
				}
			}
		}
		return state, nil
	case widget.TypeCheckbox:
		return f.nameEntry(fld.dict, "V"), nil
	default:
		return f.stringEntry(fld.dict, "V"), nil
	}
}

func (f *Form) Checked(name string) (bool, error) {
	fld, err := f.lookup(name)
	if err != nil {
		return false, err
	}
	if fld.typeCode != widget.TypeCheckbox {
		return false, fmt.Errorf("%s is not a checkbox: %w", name, document.ErrUnsupported)
	}
	v := f.nameEntry(fld.dict, "V")
	return v != "" && v != offState, nil
}

// RefreshAppearances drops the cached appearance streams of text and choice
// widgets and asks viewers to regenerate them. Button widgets keep their
// streams; /AS already selects the right one.
func (f *Form) RefreshAppearances(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if f.acroForm == nil {
		return &OpError{Op: "refresh", Err: fmt.Errorf("document has no AcroForm")}
	}
	for _, name := range names {
		fld, err := f.lookup(name)
		if err != nil {
			return err
		}
		switch fld.typeCode {
		case widget.TypeText, widget.TypeCombobox, widget.TypeListbox:
			for _, k := range fld.kids {
				delete(k.dict, "AP")
			}
		}
	}
	f.acroForm["NeedAppearances"] = types.Boolean(true)
	return nil
}

// RemoveShadowLayer deletes the XFA stream so viewers render the AcroForm
// values instead of stale XFA data.
func (f *Form) RemoveShadowLayer() (bool, error) {
	if f.acroForm == nil {
		return false, nil
	}
	if _, found := f.acroForm.Find("XFA"); !found {
		return false, nil
	}
	delete(f.acroForm, "XFA")
	return true, nil
}

// onState returns the non-Off key of a widget's normal appearance dictionary.
func (f *Form) onState(d types.Dict) string {
	o, found := d.Find("AP")
	if !found {
		return ""
	}
	ap, err := f.ctx.DereferenceDict(o)
	if err != nil || ap == nil {
		return ""
	}
	n, found := ap.Find("N")
	if !found {
		return ""
	}
	normal, err := f.ctx.DereferenceDict(n)
	if err != nil || normal == nil {
		return ""
	}
	return firstOnState(normal)
}

func firstOnState(normal types.Dict) string {
	var states []string
	for k := range normal {
		if k != offState {
			states = append(states, k)
		}
	}
	if len(states) == 0 {
		return ""
	}
	// Map order is random; a well-formed widget has exactly one on-state.
	first := states[0]
	for _, s := range states[1:] {
		if s < first {
			first = s
		}
	}
	return first
}

func (f *Form) kidStates(fld *field) []string {
	var out []string
	for _, k := range fld.kids {
		if s := f.onState(k.dict); s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// optValues returns the export values of /Opt. Entries are either strings or
// [export display] pairs.
func (f *Form) optValues(d types.Dict) []string {
	o, found := d.Find("Opt")
	if !found {
		return nil
	}
	arr, err := f.ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if pair, err := f.ctx.DereferenceArray(e); err == nil && len(pair) > 0 {
			e = pair[0]
		}
		s, err := f.ctx.DereferenceStringOrHexLiteral(e, model.V10, nil)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var utf16BOM = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// encodeText returns the escaped body of a PDF literal string. ASCII is
// written as is; anything else as UTF-16BE with a byte order mark.
func encodeText(s string) string {
	raw := s
	if !isASCII(s) {
		if enc, err := utf16BOM.NewEncoder().String(s); err == nil {
			raw = enc
		}
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
