package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/service"
	"github.com/a3tai/formkey/internal/writeback"
)

var (
	colorOK    = lipgloss.Color("#10B981")
	colorWarn  = lipgloss.Color("#F59E0B")
	colorError = lipgloss.Color("#EF4444")
	colorMuted = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	errStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// maxRows caps per-item rows in terminal reports; --json has everything
const maxRows = 40

type report struct {
	b strings.Builder
}

func (r *report) title(format string, args ...any) {
	r.b.WriteString(titleStyle.Render(fmt.Sprintf(format, args...)) + "\n")
}

func (r *report) field(label string, value any) {
	r.b.WriteString(labelStyle.Render(label) + fmt.Sprint(value) + "\n")
}

func (r *report) line(style lipgloss.Style, format string, args ...any) {
	r.b.WriteString(style.Render(fmt.Sprintf(format, args...)) + "\n")
}

// rows writes n rows through row, then a "... and N more" line
func (r *report) rows(n int, row func(i int)) {
	for i := 0; i < n; i++ {
		if i == maxRows {
			r.line(mutedStyle, "  ... and %d more", n-maxRows)
			return
		}
		row(i)
	}
}

func (r *report) String() string {
	return r.b.String()
}

func renderBuild(res *service.BuildResult) string {
	var r report
	r.title("Inventory %s", res.Path)
	r.field("Version", res.Version)
	r.field("Widgets", res.Widgets)
	r.field("Fields", res.TotalFields)
	if res.Unresolved > 0 {
		r.field("Unresolved", warnStyle.Render(fmt.Sprint(res.Unresolved)))
	} else {
		r.field("Unresolved", okStyle.Render("0"))
	}
	if res.Reconcile != nil {
		r.field("Reconciled", fmt.Sprintf("%d of %d corrected", res.Reconcile.CorrectedRecords, res.Reconcile.TotalRecords))
	}

	if len(res.Sections) > 0 {
		r.b.WriteString("\n")
		r.title("Sections")
		r.rows(len(res.Sections), func(i int) {
			sec := res.Sections[i]
			line := fmt.Sprintf("  %-6s %5d fields  pages %d-%d", sec.Section, sec.FieldCount, sec.PageRange[0], sec.PageRange[1])
			if sec.Title != "" {
				line += "  " + mutedStyle.Render(sec.Title)
			}
			r.b.WriteString(line + "\n")
		})
	}
	return r.String()
}

func renderReconcile(res *service.ReconcileResult) string {
	var r report
	rep := res.Report
	r.title("Reconciliation of %s", res.Path)
	r.field("Records", rep.TotalRecords)
	r.field("Corrected", rep.CorrectedRecords)
	switch {
	case res.Saved:
		r.line(okStyle, "Inventory saved")
	case rep.CorrectedRecords > 0:
		r.line(warnStyle, "Dry run: inventory not modified")
	default:
		r.line(okStyle, "No corrections needed")
	}

	if len(rep.Corrections) > 0 {
		r.b.WriteString("\n")
		r.rows(len(rep.Corrections), func(i int) {
			c := rep.Corrections[i]
			r.b.WriteString(fmt.Sprintf("  %s  %s -> %s  %s\n",
				c.FieldName, c.OriginalSection, okStyle.Render(c.CorrectedSection), mutedStyle.Render(c.Reason)))
		})
	}
	if len(rep.Unplaced) > 0 {
		r.line(warnStyle, "\n%d record(s) on pages no section covers", len(rep.Unplaced))
	}
	return r.String()
}

func renderValidate(res *service.ValidateResult) string {
	var r report
	r.title("Validation of %s", res.Path)
	r.field("Fields", res.TotalFields)
	r.field("Unresolved", res.Unresolved)
	if len(res.Issues) == 0 {
		r.line(okStyle, "All section assignments match the page-range table")
		return r.String()
	}

	r.line(errStyle, "%d issue(s)", len(res.Issues))
	r.rows(len(res.Issues), func(i int) {
		issue := res.Issues[i]
		r.b.WriteString(fmt.Sprintf("  %s  %s\n", issue.FieldName, mutedStyle.Render(issue.Message)))
	})
	return r.String()
}

func renderDrift(res *service.DriftResult) string {
	var r report
	rep := res.Report
	r.title("Drift check of %s", res.Source)
	r.field("Inventory", rep.Version)
	r.field("Checked", rep.Checked)
	r.field("Unchanged", rep.Unchanged)
	if !rep.Drifted() {
		r.line(okStyle, "No drift detected")
		return r.String()
	}

	section := func(title string, style lipgloss.Style, items []inventory.DriftItem) {
		if len(items) == 0 {
			return
		}
		r.line(style, "\n%s (%d)", title, len(items))
		r.rows(len(items), func(i int) {
			item := items[i]
			line := "  " + item.FieldName
			if len(item.Reasons) > 0 {
				line += "  " + mutedStyle.Render(strings.Join(item.Reasons, ", "))
			}
			r.b.WriteString(line + "\n")
		})
	}
	section("Missing", errStyle, rep.Missing)
	section("Added", warnStyle, rep.Added)
	section("Changed", warnStyle, rep.Changed)
	return r.String()
}

func renderFill(res *service.FillResult) string {
	var r report
	wb := res.Result
	r.title("Filled %s", res.Output)
	r.field("Applied", okStyle.Render(fmt.Sprint(wb.Applied)))
	r.field("Skipped", wb.Skipped)
	if wb.Errored > 0 {
		r.field("Errored", errStyle.Render(fmt.Sprint(wb.Errored)))
	} else {
		r.field("Errored", 0)
	}
	if len(wb.Refreshed) > 0 {
		r.field("Refreshed", len(wb.Refreshed))
	}
	if wb.ShadowLayerRemoved {
		r.line(mutedStyle, "Shadow form layer removed")
	}

	var failed []writeback.FieldResult
	for _, fr := range wb.Fields {
		if fr.Outcome == writeback.Errored {
			failed = append(failed, fr)
		}
	}
	if len(failed) > 0 {
		r.b.WriteString("\n")
		r.rows(len(failed), func(i int) {
			fr := failed[i]
			r.b.WriteString(fmt.Sprintf("  %s  %s %s\n", fr.Key, errStyle.Render(fr.ErrorType.String()), fr.Reason))
		})
	}
	return r.String()
}

func renderEntries(res *service.EntriesResult) string {
	var r report
	if res.Action == service.EntriesList {
		r.title("Multi-entry sections")
		if len(res.Sections) == 0 {
			r.line(mutedStyle, "none")
		}
		for _, sec := range res.Sections {
			r.b.WriteString(fmt.Sprintf("  %-6s max %d  active %v  expanded %v\n",
				sec.Section, sec.MaxEntries, sec.State.Active, sec.State.Expanded))
		}
		return r.String()
	}

	r.title("Section %s: %s", res.Section, res.Action)
	if res.Action == service.EntriesAdd {
		r.field("Activated", res.Entry)
	}
	if res.State != nil {
		r.field("Active", fmt.Sprint(res.State.Active))
		r.field("Expanded", fmt.Sprint(res.State.Expanded))
	}
	r.field("Fields", len(res.ActiveFields))
	if len(res.ClearedFields) > 0 {
		r.field("Cleared", fmt.Sprintf("%d fields, %d stored values", len(res.ClearedFields), res.ClearedValues))
	}
	return r.String()
}

func renderRanges(res *service.RangesResult) string {
	var r report
	r.title("Section headings: %d", len(res.Headings))
	if res.Output != "" {
		r.field("Written", res.Output)
	}
	if len(res.Diff) == 0 {
		r.line(okStyle, "Proposed table matches the configured one")
		return r.String()
	}

	r.b.WriteString("\n")
	for _, d := range res.Diff {
		configured, proposed := "-", "-"
		if d.Configured != nil {
			configured = d.Configured.String()
		}
		if d.Proposed != nil {
			proposed = d.Proposed.String()
		}
		r.b.WriteString(fmt.Sprintf("  %-6s %s -> %s\n", d.Section, mutedStyle.Render(configured), warnStyle.Render(proposed)))
	}
	return r.String()
}
