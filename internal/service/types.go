package service

import (
	"github.com/a3tai/formkey/internal/entries"
	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/pdf/headings"
	"github.com/a3tai/formkey/internal/reconcile"
	"github.com/a3tai/formkey/internal/writeback"
)

// Request Types

// BuildRequest builds an inventory from a PDF or a widget extraction file
type BuildRequest struct {
	Source  string `json:"source"`
	Index   string `json:"index,omitempty"`
	Output  string `json:"output,omitempty"`
	Version string `json:"version,omitempty"`
	// Reconcile runs the section reconciler before the artifact is saved.
	Reconcile bool `json:"reconcile,omitempty"`
}

// ReconcileRequest corrects section assignments of a saved inventory
type ReconcileRequest struct {
	Inventory string `json:"inventory,omitempty"`
	Ranges    string `json:"ranges,omitempty"`
	DryRun    bool   `json:"dryRun,omitempty"`
}

// ValidateRequest checks a saved inventory without modifying it
type ValidateRequest struct {
	Inventory string `json:"inventory,omitempty"`
	Ranges    string `json:"ranges,omitempty"`
}

// DriftRequest compares a saved inventory with a re-extracted source
type DriftRequest struct {
	Inventory string `json:"inventory,omitempty"`
	Source    string `json:"source"`
}

// FillRequest writes a value store into a copy of a PDF
type FillRequest struct {
	Inventory string `json:"inventory,omitempty"`
	PDF       string `json:"pdf"`
	Values    string `json:"values"`
	Output    string `json:"output,omitempty"`
	KeyMode   string `json:"keyMode,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
}

// Entry actions
const (
	EntriesList   = "list"
	EntriesShow   = "show"
	EntriesAdd    = "add"
	EntriesRemove = "remove"
	EntriesToggle = "toggle"
)

// EntriesRequest runs one entry-manager action. State is read from and
// written back to StateFile when set; Values, when set, has the fields of
// a removed entry cleared.
type EntriesRequest struct {
	Inventory string `json:"inventory,omitempty"`
	StateFile string `json:"stateFile,omitempty"`
	Values    string `json:"values,omitempty"`
	KeyMode   string `json:"keyMode,omitempty"`
	Section   string `json:"section,omitempty"`
	Action    string `json:"action"`
	Entry     int    `json:"entry,omitempty"`
}

// RangesRequest proposes a page-range table from section headings
type RangesRequest struct {
	PDF    string `json:"pdf"`
	Ranges string `json:"ranges,omitempty"`
	Output string `json:"output,omitempty"`
}

// Response Types

// BuildResult summarizes a built inventory
type BuildResult struct {
	Path        string                     `json:"path"`
	Version     string                     `json:"version"`
	Widgets     int                        `json:"widgets"`
	TotalFields int                        `json:"totalFields"`
	Unresolved  int                        `json:"unresolved"`
	Sections    []inventory.SectionSummary `json:"sections"`
	Reconcile   *reconcile.Report          `json:"reconcile,omitempty"`
}

// ReconcileResult is a reconciliation report plus where it was saved
type ReconcileResult struct {
	Path   string            `json:"path"`
	Saved  bool              `json:"saved"`
	Report *reconcile.Report `json:"report"`
}

// ValidateResult lists section-assignment issues of an inventory
type ValidateResult struct {
	Path        string            `json:"path"`
	TotalFields int               `json:"totalFields"`
	Unresolved  int               `json:"unresolved"`
	Issues      []reconcile.Issue `json:"issues"`
}

// DriftResult wraps a drift report
type DriftResult struct {
	Source string                 `json:"source"`
	Report *inventory.DriftReport `json:"report"`
}

// FillResult is a write-back result plus the written document
type FillResult struct {
	Output string            `json:"output"`
	Result *writeback.Result `json:"result"`
}

// SectionEntries describes one multi-entry section
type SectionEntries struct {
	Section    string        `json:"section"`
	MaxEntries int           `json:"maxEntries"`
	State      entries.State `json:"state"`
}

// EntriesResult is the outcome of an entry-manager action
type EntriesResult struct {
	Action        string           `json:"action"`
	Section       string           `json:"section,omitempty"`
	Entry         int              `json:"entry"`
	State         *entries.State   `json:"state,omitempty"`
	Sections      []SectionEntries `json:"sections,omitempty"`
	ActiveFields  []string         `json:"activeFields,omitempty"`
	ClearedFields []string         `json:"clearedFields,omitempty"`
	ClearedValues int              `json:"clearedValues"`
}

// RangesResult is a proposed page-range table and its difference from the
// configured one.
type RangesResult struct {
	Proposed reconcile.PageRangeTable `json:"proposed"`
	Headings []headings.Heading       `json:"headings"`
	Diff     []reconcile.RangeDiff    `json:"diff"`
	Output   string                   `json:"output,omitempty"`
}
