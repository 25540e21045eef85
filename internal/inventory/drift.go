package inventory

import (
	"sort"

	"github.com/a3tai/formkey/internal/fingerprint"
	"github.com/a3tai/formkey/internal/widget"
)

// RectTolerance is the per-component tolerance for reporting a moved rect.
const RectTolerance = 0.25

// Drift reasons
const (
	DriftPage        = "page"
	DriftRect        = "rect"
	DriftType        = "type"
	DriftFingerprint = "fingerprint"
)

// DriftItem describes one field that differs between the inventory and the
// live document.
type DriftItem struct {
	FieldName       string   `json:"fieldName"`
	UIPath          string   `json:"uiPath,omitempty"`
	Fingerprint     string   `json:"fingerprint,omitempty"`
	LiveFingerprint string   `json:"liveFingerprint,omitempty"`
	Reasons         []string `json:"reasons,omitempty"`
}

// DriftReport is the result of comparing an inventory with a re-extraction.
type DriftReport struct {
	Version   string      `json:"version"`
	Checked   int         `json:"checked"`
	Unchanged int         `json:"unchanged"`
	Missing   []DriftItem `json:"missing,omitempty"`
	Added     []DriftItem `json:"added,omitempty"`
	Changed   []DriftItem `json:"changed,omitempty"`
}

// Drifted reports whether the live document no longer matches the inventory
func (r *DriftReport) Drifted() bool {
	return len(r.Missing) > 0 || len(r.Added) > 0 || len(r.Changed) > 0
}

// DetectDrift regroups and re-fingerprints live widgets and compares them
// with the inventory by field name. A changed fingerprint means the source
// document changed shape since the inventory was built.
func DetectDrift(inv *Inventory, live []widget.Widget) *DriftReport {
	report := &DriftReport{Version: inv.Version}

	byName := make(map[string]*FieldRecord, len(inv.Records))
	for _, r := range inv.Records {
		byName[r.FieldName] = r
	}

	groups := widget.Group(live)
	seen := make(map[string]bool, groups.Len())
	for _, f := range groups.Fields {
		report.Checked++
		seen[f.FieldName] = true
		liveFP := fingerprint.ForField(f)

		rec, ok := byName[f.FieldName]
		if !ok {
			report.Added = append(report.Added, DriftItem{FieldName: f.FieldName, LiveFingerprint: liveFP})
			continue
		}
		if rec.Fingerprint == liveFP && rec.RawTypeCode == f.RawTypeCode {
			report.Unchanged++
			continue
		}

		item := DriftItem{
			FieldName:       f.FieldName,
			UIPath:          rec.UIPath,
			Fingerprint:     rec.Fingerprint,
			LiveFingerprint: liveFP,
		}
		if rec.Page != f.Page {
			item.Reasons = append(item.Reasons, DriftPage)
		}
		if len(rec.Rects) > 0 && len(f.Rects) > 0 && !rec.Rects[0].Close(f.Rects[0], RectTolerance) {
			item.Reasons = append(item.Reasons, DriftRect)
		}
		if rec.RawTypeCode != f.RawTypeCode {
			item.Reasons = append(item.Reasons, DriftType)
		}
		if len(item.Reasons) == 0 {
			item.Reasons = append(item.Reasons, DriftFingerprint)
		}
		report.Changed = append(report.Changed, item)
	}

	for name, rec := range byName {
		if seen[name] {
			continue
		}
		report.Missing = append(report.Missing, DriftItem{
			FieldName:   name,
			UIPath:      rec.UIPath,
			Fingerprint: rec.Fingerprint,
		})
	}

	byField := func(items []DriftItem) {
		sort.Slice(items, func(i, j int) bool { return items[i].FieldName < items[j].FieldName })
	}
	byField(report.Missing)
	byField(report.Added)
	byField(report.Changed)
	return report
}
