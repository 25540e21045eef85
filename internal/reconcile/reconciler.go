// Package reconcile corrects inventory section assignments using the page a
// field sits on and a static section page-range table.
package reconcile

import (
	"fmt"
	"io"
	"log"

	"github.com/a3tai/formkey/internal/formerr"
	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/structure"
)

// Correction is one rewritten section assignment
type Correction struct {
	FieldID          string            `json:"fieldId"`
	FieldName        string            `json:"fieldName"`
	OriginalSection  string            `json:"originalSection"`
	CorrectedSection string            `json:"correctedSection"`
	Page             int               `json:"page"`
	Reason           string            `json:"reason"`
	Type             formerr.ErrorType `json:"type"`
}

// Report is the outcome of one reconciliation pass
type Report struct {
	TotalRecords     int          `json:"totalRecords"`
	CorrectedRecords int          `json:"correctedRecords"`
	Corrections      []Correction `json:"corrections"`
	// Unplaced lists records whose page no configured section covers; they
	// keep their current section.
	Unplaced []Issue `json:"unplaced,omitempty"`
}

// Issue is a section assignment the validator considers wrong
type Issue struct {
	FieldID   string            `json:"fieldId"`
	FieldName string            `json:"fieldName"`
	Section   string            `json:"section"`
	Page      int               `json:"page"`
	Message   string            `json:"message"`
	Type      formerr.ErrorType `json:"type"`
}

// Reconciler validates and corrects inventory sections against a table
type Reconciler struct {
	table  PageRangeTable
	logger *log.Logger
	debug  bool
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLogger sets the logger; debug logs every correction.
func WithLogger(l *log.Logger, debug bool) Option {
	return func(r *Reconciler) {
		r.logger = l
		r.debug = debug
	}
}

// New creates a reconciler; a nil table selects DefaultPageRanges.
func New(table PageRangeTable, opts ...Option) *Reconciler {
	if table == nil {
		table = DefaultPageRanges()
	}
	r := &Reconciler{table: table, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the page-range table in use
func (r *Reconciler) Table() PageRangeTable {
	return r.table
}

func unset(section string) bool {
	return section == "" || section == structure.UnknownSection
}

// Reconcile rewrites LogicalLocation.Section in place for every record whose
// section is unset or whose section range excludes its page, then reindexes
// the inventory. Running it again on its own output corrects nothing.
func (r *Reconciler) Reconcile(inv *inventory.Inventory) *Report {
	report := &Report{TotalRecords: len(inv.Records), Corrections: []Correction{}}

	for _, rec := range inv.Sorted() {
		section := rec.LogicalLocation.Section
		if !unset(section) && r.table.Contains(section, rec.Page) {
			continue
		}

		target, ok := r.table.Lowest(rec.Page)
		if !ok {
			report.Unplaced = append(report.Unplaced, Issue{
				FieldID:   rec.Fingerprint,
				FieldName: rec.FieldName,
				Section:   section,
				Page:      rec.Page,
				Message:   fmt.Sprintf("page %d is not covered by any section range", rec.Page),
				Type:      formerr.ErrorTypeSectionPageMismatch,
			})
			continue
		}

		c := Correction{
			FieldID:          rec.Fingerprint,
			FieldName:        rec.FieldName,
			OriginalSection:  section,
			CorrectedSection: target,
			Page:             rec.Page,
		}
		if unset(section) {
			c.Type = formerr.ErrorTypeMissingStructuralMapping
			c.Reason = fmt.Sprintf("no structural mapping; page %d assigned to section %s", rec.Page, target)
		} else {
			c.Type = formerr.ErrorTypeSectionPageMismatch
			c.Reason = fmt.Sprintf("page %d not in section %s range %s; reassigned to section %s",
				rec.Page, section, r.rangeOf(section), target)
		}

		// Subsection and entry belong to the old section's layout.
		rec.LogicalLocation = structure.Location{Section: target}
		report.Corrections = append(report.Corrections, c)
		if r.debug {
			r.logger.Printf("%s: %s", rec.FieldName, c.Reason)
		}
	}

	report.CorrectedRecords = len(report.Corrections)
	if report.CorrectedRecords > 0 {
		inv.Reindex()
	}
	r.logger.Printf("Reconciled %d records: %d corrected, %d unplaced",
		report.TotalRecords, report.CorrectedRecords, len(report.Unplaced))
	return report
}

func (r *Reconciler) rangeOf(section string) string {
	if pr, ok := r.table[section]; ok {
		return pr.String()
	}
	return "[none]"
}

// ValidateSectionAssignments reports every record whose section is unset or
// whose page lies outside its section's range. It never mutates inv.
func (r *Reconciler) ValidateSectionAssignments(inv *inventory.Inventory) []Issue {
	var issues []Issue
	for _, rec := range inv.Sorted() {
		section := rec.LogicalLocation.Section
		issue := Issue{
			FieldID:   rec.Fingerprint,
			FieldName: rec.FieldName,
			Section:   section,
			Page:      rec.Page,
		}
		switch {
		case unset(section):
			issue.Type = formerr.ErrorTypeMissingStructuralMapping
			issue.Message = "section is unresolved"
		case !r.table.Contains(section, rec.Page):
			issue.Type = formerr.ErrorTypeSectionPageMismatch
			issue.Message = fmt.Sprintf("page %d not in section %s range %s", rec.Page, section, r.rangeOf(section))
		default:
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}
