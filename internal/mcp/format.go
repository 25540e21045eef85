package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/service"
	"github.com/a3tai/formkey/internal/writeback"
)

// maxListed caps per-item detail in tool output
const maxListed = 25

func formatBuildResult(result *service.BuildResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inventory written: %s\n", result.Path)
	fmt.Fprintf(&b, "Version: %s\n", result.Version)
	fmt.Fprintf(&b, "Widgets: %d\n", result.Widgets)
	fmt.Fprintf(&b, "Fields: %d (%d unresolved)\n", result.TotalFields, result.Unresolved)
	if result.Reconcile != nil {
		fmt.Fprintf(&b, "Reconciled: %d of %d records corrected\n",
			result.Reconcile.CorrectedRecords, result.Reconcile.TotalRecords)
	}

	if len(result.Sections) > 0 {
		b.WriteString("\nSections:\n")
		for _, sec := range result.Sections {
			fmt.Fprintf(&b, "  %s: %d fields, pages %d-%d", sec.Section, sec.FieldCount, sec.PageRange[0], sec.PageRange[1])
			if sec.Title != "" {
				fmt.Fprintf(&b, " (%s)", sec.Title)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatReconcileResult(result *service.ReconcileResult) string {
	var b strings.Builder
	report := result.Report
	fmt.Fprintf(&b, "Reconciled %s\n", result.Path)
	fmt.Fprintf(&b, "Records: %d, corrected: %d\n", report.TotalRecords, report.CorrectedRecords)
	if result.Saved {
		b.WriteString("Inventory saved\n")
	} else {
		b.WriteString("Inventory not modified\n")
	}

	for i, c := range report.Corrections {
		if i == 0 {
			b.WriteString("\nCorrections:\n")
		}
		if i >= maxListed {
			fmt.Fprintf(&b, "  ... and %d more\n", len(report.Corrections)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s: %s -> %s (%s)\n", c.FieldName, c.OriginalSection, c.CorrectedSection, c.Reason)
	}
	if len(report.Unplaced) > 0 {
		fmt.Fprintf(&b, "\n%d record(s) on pages no section covers\n", len(report.Unplaced))
	}
	return b.String()
}

func formatValidateResult(result *service.ValidateResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validated %s: %d fields, %d unresolved\n", result.Path, result.TotalFields, result.Unresolved)
	if len(result.Issues) == 0 {
		b.WriteString("All section assignments match the page-range table\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d issue(s):\n", len(result.Issues))
	for i, issue := range result.Issues {
		if i >= maxListed {
			fmt.Fprintf(&b, "  ... and %d more\n", len(result.Issues)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Type, issue.FieldName, issue.Message)
	}
	return b.String()
}

func formatDriftResult(result *service.DriftResult) string {
	var b strings.Builder
	report := result.Report
	fmt.Fprintf(&b, "Drift check of %s against inventory version %s\n", result.Source, report.Version)
	fmt.Fprintf(&b, "Checked: %d, unchanged: %d\n", report.Checked, report.Unchanged)
	if !report.Drifted() {
		b.WriteString("No drift detected\n")
		return b.String()
	}

	writeItems := func(title string, items []inventory.DriftItem) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", title, len(items))
		for i, item := range items {
			if i >= maxListed {
				fmt.Fprintf(&b, "  ... and %d more\n", len(items)-maxListed)
				return
			}
			fmt.Fprintf(&b, "  %s", item.FieldName)
			if len(item.Reasons) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(item.Reasons, ", "))
			}
			b.WriteString("\n")
		}
	}
	writeItems("Missing", report.Missing)
	writeItems("Added", report.Added)
	writeItems("Changed", report.Changed)
	return b.String()
}

func formatFillResult(result *service.FillResult) string {
	var b strings.Builder
	res := result.Result
	fmt.Fprintf(&b, "Filled PDF written: %s\n", result.Output)
	fmt.Fprintf(&b, "Applied: %d, skipped: %d, errored: %d\n", res.Applied, res.Skipped, res.Errored)
	if len(res.Refreshed) > 0 {
		fmt.Fprintf(&b, "Appearances refreshed for %d field(s)\n", len(res.Refreshed))
	}
	if res.ShadowLayerRemoved {
		b.WriteString("Shadow form layer removed\n")
	}

	listed := 0
	for _, fr := range res.Fields {
		if fr.Outcome != writeback.Errored {
			continue
		}
		if listed == 0 {
			b.WriteString("\nErrors:\n")
		}
		if listed >= maxListed {
			fmt.Fprintf(&b, "  ... and %d more\n", res.Errored-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s: %s\n", fr.Key, fr.Reason)
		listed++
	}
	return b.String()
}

func formatEntriesResult(result *service.EntriesResult) string {
	var b strings.Builder
	if result.Action == service.EntriesList {
		if len(result.Sections) == 0 {
			return "No multi-entry sections in the inventory\n"
		}
		b.WriteString("Multi-entry sections:\n")
		for _, sec := range result.Sections {
			fmt.Fprintf(&b, "  %s: max %d, active %v, expanded %v\n",
				sec.Section, sec.MaxEntries, sec.State.Active, sec.State.Expanded)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Section %s (%s)\n", result.Section, result.Action)
	if result.Action == service.EntriesAdd {
		fmt.Fprintf(&b, "Activated entry %d\n", result.Entry)
	}
	if result.State != nil {
		fmt.Fprintf(&b, "Active entries: %v\n", result.State.Active)
		fmt.Fprintf(&b, "Expanded entries: %v\n", result.State.Expanded)
	}
	fmt.Fprintf(&b, "Active fields: %d\n", len(result.ActiveFields))
	if len(result.ClearedFields) > 0 {
		fmt.Fprintf(&b, "Cleared fields: %d (%d stored values removed)\n", len(result.ClearedFields), result.ClearedValues)
	}
	return b.String()
}

func formatRangesResult(result *service.RangesResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d section heading(s)\n", len(result.Headings))
	if result.Output != "" {
		fmt.Fprintf(&b, "Proposed table written: %s\n", result.Output)
	}
	if len(result.Diff) == 0 {
		b.WriteString("Proposed table matches the configured one\n")
		return b.String()
	}

	b.WriteString("\nDifferences (configured -> proposed):\n")
	for _, d := range result.Diff {
		configured, proposed := "none", "none"
		if d.Configured != nil {
			configured = d.Configured.String()
		}
		if d.Proposed != nil {
			proposed = d.Proposed.String()
		}
		fmt.Fprintf(&b, "  %s: %s -> %s\n", d.Section, configured, proposed)
	}
	return b.String()
}
