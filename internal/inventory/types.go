package inventory

import (
	"sort"
	"time"

	"github.com/a3tai/formkey/internal/semantic"
	"github.com/a3tai/formkey/internal/structure"
	"github.com/a3tai/formkey/internal/widget"
)

// FieldRecord is one addressable inventory entry
type FieldRecord struct {
	Fingerprint      string               `json:"fingerprint"`
	UIPath           string               `json:"uiPath"`
	FieldName        string               `json:"fieldName"`
	WidgetIDs        []string             `json:"widgetIds"`
	Page             int                  `json:"page"`
	Rects            []widget.Rect        `json:"rects"`
	FieldKind        widget.FieldKind     `json:"fieldKind"`
	RawTypeCode      widget.TypeCode      `json:"rawTypeCode"`
	Label            string               `json:"label,omitempty"`
	LogicalLocation  structure.Location   `json:"logicalLocation"`
	ResolutionSource structure.Source     `json:"resolutionSource,omitempty"`
	LabelSource      semantic.LabelSource `json:"labelSource,omitempty"`
}

// Inventory is the versioned field inventory for one source-document
// version. Only the section reconciler mutates it after build.
type Inventory struct {
	Version      string                  `json:"version"`
	GeneratedAt  time.Time               `json:"generatedAt"`
	TotalFields  int                     `json:"totalFields"`
	Records      map[string]*FieldRecord `json:"records"`
	BySection    map[string][]string     `json:"bySection"`
	BySubsection map[string][]string     `json:"bySubsection"`
}

// New returns an empty inventory
func New(version string, generatedAt time.Time) *Inventory {
	return &Inventory{
		Version:      version,
		GeneratedAt:  generatedAt,
		Records:      make(map[string]*FieldRecord),
		BySection:    make(map[string][]string),
		BySubsection: make(map[string][]string),
	}
}

// Get returns the record for a fingerprint
func (inv *Inventory) Get(fingerprint string) (*FieldRecord, bool) {
	r, ok := inv.Records[fingerprint]
	return r, ok
}

// Sorted returns every record ordered by page, then uiPath, then fingerprint.
func (inv *Inventory) Sorted() []*FieldRecord {
	out := make([]*FieldRecord, 0, len(inv.Records))
	for _, r := range inv.Records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.UIPath != b.UIPath {
			return a.UIPath < b.UIPath
		}
		return a.Fingerprint < b.Fingerprint
	})
	return out
}

// Reindex rebuilds TotalFields, BySection and BySubsection from the records.
func (inv *Inventory) Reindex() {
	inv.BySection = make(map[string][]string)
	inv.BySubsection = make(map[string][]string)

	for _, r := range inv.Sorted() {
		loc := r.LogicalLocation
		section := loc.Section
		if section == "" {
			section = structure.UnknownSection
		}
		inv.BySection[section] = append(inv.BySection[section], r.Fingerprint)
		if key := loc.SubsectionKey(); key != "" {
			inv.BySubsection[key] = append(inv.BySubsection[key], r.Fingerprint)
		}
	}
	inv.TotalFields = len(inv.Records)
}

// Section returns the records of one section in index order
func (inv *Inventory) Section(section string) []*FieldRecord {
	ids := inv.BySection[section]
	out := make([]*FieldRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := inv.Records[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Unresolved returns fingerprints whose location could not be resolved.
func (inv *Inventory) Unresolved() []string {
	return append([]string(nil), inv.BySection[structure.UnknownSection]...)
}
