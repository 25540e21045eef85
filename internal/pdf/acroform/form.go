// Package acroform reads and fills AcroForm fields of a PDF with pdfcpu.
package acroform

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/formkey/internal/widget"
)

// Field flag bits (PDF 32000-1 tables 226, 228, 230; bit n is 1<<(n-1)).
const (
	flagReadOnly   = 1 << 0
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
	flagCombo      = 1 << 17
)

// OpError reports a failed pdfcpu operation on a form
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("acroform %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// kid is one widget annotation of a terminal field
type kid struct {
	objNr int
	dict  types.Dict
}

// field is a terminal AcroForm field
type field struct {
	name     string
	dict     types.Dict
	typeCode widget.TypeCode
	flags    int
	label    string
	kids     []kid
}

// Form is an opened PDF whose AcroForm tree has been indexed by fully
// qualified field name. It implements document.Document.
type Form struct {
	ctx      *model.Context
	acroForm types.Dict
	fields   map[string]*field
	order    []string
	pageOf   map[int]int
	logger   *log.Logger
}

// Option configures Open
type Option func(*Form)

// WithLogger sets the logger for skipped or malformed fields
func WithLogger(l *log.Logger) Option {
	return func(f *Form) { f.logger = l }
}

// Open reads a PDF and indexes its form fields
func Open(path string, opts ...Option) (*Form, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &OpError{Op: "open", Err: fmt.Errorf("failed to open file: %w", err)}
	}
	defer file.Close()

	return Read(file, opts...)
}

// Read reads a PDF from rs and indexes its form fields
func Read(rs io.ReadSeeker, opts ...Option) (*Form, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, &OpError{Op: "read", Err: fmt.Errorf("failed to read PDF context: %w", err)}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &OpError{Op: "read", Err: fmt.Errorf("failed to ensure page count: %w", err)}
	}

	f := &Form{
		ctx:    ctx,
		fields: make(map[string]*field),
		pageOf: make(map[int]int),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.indexPages(); err != nil {
		return nil, err
	}
	if err := f.indexFields(); err != nil {
		return nil, err
	}
	return f, nil
}

// indexPages maps every annotation object number to its 1-based page.
func (f *Form) indexPages() error {
	for page := 1; page <= f.ctx.PageCount; page++ {
		pageDict, _, _, err := f.ctx.PageDict(page, false)
		if err != nil {
			return &OpError{Op: "index pages", Err: fmt.Errorf("page %d: %w", page, err)}
		}
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := f.ctx.DereferenceArray(annotsObj)
		if err != nil {
			f.logger.Printf("Skipping annotations of page %d: %v", page, err)
			continue
		}
		for _, a := range annots {
			if ref, ok := a.(types.IndirectRef); ok {
				f.pageOf[int(ref.ObjectNumber)] = page
			}
		}
	}
	return nil
}

func (f *Form) indexFields() error {
	rootDict, err := f.ctx.Catalog()
	if err != nil {
		return &OpError{Op: "index fields", Err: fmt.Errorf("failed to get catalog: %w", err)}
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil
	}
	acroForm, err := f.ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return &OpError{Op: "index fields", Err: fmt.Errorf("failed to dereference AcroForm: %w", err)}
	}
	if acroForm == nil {
		return nil
	}
	f.acroForm = acroForm

	fieldsObj, found := acroForm.Find("Fields")
	if !found {
		return nil
	}
	fields, err := f.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return &OpError{Op: "index fields", Err: fmt.Errorf("failed to dereference Fields array: %w", err)}
	}
	for _, obj := range fields {
		f.walk(obj, "", "", 0, 0)
	}
	return nil
}

// walk descends the field tree. FT and Ff are inheritable; a node whose
// kids carry no /T is a terminal field and its kids are widget annotations.
func (f *Form) walk(obj types.Object, parentName, ft string, flags, depth int) {
	if depth > 32 {
		f.logger.Printf("Field tree under %q is too deep; skipping", parentName)
		return
	}
	d, err := f.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	name := parentName
	if partial := f.stringEntry(d, "T"); partial != "" {
		name = joinName(parentName, partial)
	}
	if v := f.nameEntry(d, "FT"); v != "" {
		ft = v
	}
	if o, found := d.Find("Ff"); found {
		if i, err := f.ctx.DereferenceInteger(o); err == nil && i != nil {
			flags = int(*i)
		}
	}

	var kids types.Array
	if o, found := d.Find("Kids"); found {
		kids, _ = f.ctx.DereferenceArray(o)
	}

	if len(kids) > 0 && f.hasNamedKid(kids) {
		for _, k := range kids {
			f.walk(k, name, ft, flags, depth+1)
		}
		return
	}
	if name == "" {
		return
	}

	fld := &field{
		name:     name,
		dict:     d,
		typeCode: typeCodeFor(ft, flags),
		flags:    flags,
		label:    f.stringEntry(d, "TU"),
	}
	if len(kids) == 0 {
		fld.kids = []kid{{objNr: objNumber(obj), dict: d}}
	}
	for _, k := range kids {
		kd, err := f.ctx.DereferenceDict(k)
		if err != nil || kd == nil {
			continue
		}
		fld.kids = append(fld.kids, kid{objNr: objNumber(k), dict: kd})
	}

	if _, dup := f.fields[name]; dup {
		f.logger.Printf("Duplicate terminal field %q; keeping the first", name)
		return
	}
	f.fields[name] = fld
	f.order = append(f.order, name)
}

func (f *Form) hasNamedKid(kids types.Array) bool {
	for _, k := range kids {
		kd, err := f.ctx.DereferenceDict(k)
		if err != nil || kd == nil {
			continue
		}
		if _, found := kd.Find("T"); found {
			return true
		}
	}
	return false
}

func (f *Form) stringEntry(d types.Dict, key string) string {
	o, found := d.Find(key)
	if !found {
		return ""
	}
	s, err := f.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

func (f *Form) nameEntry(d types.Dict, key string) string {
	o, found := d.Find(key)
	if !found {
		return ""
	}
	n, err := f.ctx.DereferenceName(o, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(n)
}

func (f *Form) rectOf(d types.Dict) (widget.Rect, bool) {
	o, found := d.Find("Rect")
	if !found {
		return widget.Rect{}, false
	}
	arr, err := f.ctx.DereferenceArray(o)
	if err != nil || len(arr) != 4 {
		return widget.Rect{}, false
	}
	var c [4]float64
	for i, v := range arr {
		n, err := f.ctx.DereferenceNumber(v)
		if err != nil {
			return widget.Rect{}, false
		}
		c[i] = n
	}
	return rectFromCorners(c), true
}

// pageOfKid resolves a widget's page from page /Annots membership, falling
// back to the widget's /P entry.
func (f *Form) pageOfKid(k kid) int {
	if p, ok := f.pageOf[k.objNr]; ok {
		return p
	}
	if o, found := k.dict.Find("P"); found {
		if ref, ok := o.(types.IndirectRef); ok {
			for page := 1; page <= f.ctx.PageCount; page++ {
				if _, pageRef, _, err := f.ctx.PageDict(page, false); err == nil && pageRef != nil &&
					pageRef.ObjectNumber == ref.ObjectNumber {
					return page
				}
			}
		}
	}
	return 0
}

// Widgets returns one raw widget per widget annotation, in field-tree order.
// Widgets whose page cannot be determined are skipped.
func (f *Form) Widgets() []widget.Widget {
	var out []widget.Widget
	for _, name := range f.order {
		fld := f.fields[name]
		for i, k := range fld.kids {
			page := f.pageOfKid(k)
			if page == 0 {
				f.logger.Printf("Widget %d of %s has no page; skipping", i, name)
				continue
			}
			rect, _ := f.rectOf(k.dict)
			id := strconv.Itoa(k.objNr)
			if k.objNr == 0 {
				id = fmt.Sprintf("%s#%d", name, i)
			}
			out = append(out, widget.Widget{
				StableID:    id,
				Page:        page,
				Rect:        rect,
				RawTypeCode: fld.typeCode,
				FieldName:   name,
				RawLabel:    fld.label,
			})
		}
	}
	return out
}

// FieldNames returns every terminal field name, sorted
func (f *Form) FieldNames() []string {
	names := append([]string(nil), f.order...)
	sort.Strings(names)
	return names
}

// PageCount returns the number of pages
func (f *Form) PageCount() int {
	return f.ctx.PageCount
}

// Save writes the (possibly mutated) document to path
func (f *Form) Save(path string) error {
	if err := api.WriteContextFile(f.ctx, path); err != nil {
		return &OpError{Op: "save", Err: err}
	}
	return nil
}

// Extract opens a PDF and returns its raw widgets
func Extract(path string, opts ...Option) ([]widget.Widget, error) {
	f, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return f.Widgets(), nil
}

func objNumber(o types.Object) int {
	if ref, ok := o.(types.IndirectRef); ok {
		return int(ref.ObjectNumber)
	}
	return 0
}

func joinName(parent, partial string) string {
	if parent == "" {
		return partial
	}
	return parent + "." + partial
}

// typeCodeFor maps a field type and its flags onto the extraction type codes.
func typeCodeFor(ft string, flags int) widget.TypeCode {
	switch ft {
	case "Tx":
		return widget.TypeText
	case "Btn":
		switch {
		case flags&flagPushbutton != 0:
			return widget.TypeButton
		case flags&flagRadio != 0:
			return widget.TypeRadio
		default:
			return widget.TypeCheckbox
		}
	case "Ch":
		if flags&flagCombo != 0 {
			return widget.TypeCombobox
		}
		return widget.TypeListbox
	case "Sig":
		return widget.TypeSignature
	default:
		return widget.TypeUnknown
	}
}

// rectFromCorners converts [llx lly urx ury] (in any corner order) into a
// normalized x/y/width/height rect.
func rectFromCorners(c [4]float64) widget.Rect {
	x0, x1 := c[0], c[2]
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	y0, y1 := c[1], c[3]
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return widget.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
