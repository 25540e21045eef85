package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formkey/internal/entries"
	"github.com/a3tai/formkey/internal/formerr"
	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/pdf/acroform"
	"github.com/a3tai/formkey/internal/pdf/acroform/acroformtest"
	"github.com/a3tai/formkey/internal/widget"
)

const testIndex = `sections:
  "13":
    fieldIds: [w-misplaced]
    subsections:
      13A.2:
        entries:
          "1": {fieldIds: [w-super-1]}
          "2": {fieldIds: [w-super-2]}
`

const testRanges = `sections:
  "1": [5, 5]
  "13": [17, 24]
`

func testWidgets() []widget.Widget {
	return []widget.Widget{
		{
			StableID: "w-super-1", Page: 17, RawTypeCode: widget.TypeText,
			Rect:      widget.Rect{X: 10, Y: 20, Width: 200, Height: 12},
			FieldName: "form1[0].Section13_2[0].TextField11[0]", RawLabel: "Supervisor Name",
		},
		{
			StableID: "w-super-2", Page: 18, RawTypeCode: widget.TypeText,
			Rect:      widget.Rect{X: 10, Y: 20, Width: 200, Height: 12},
			FieldName: "form1[0].Section13_2[1].TextField11[0]", RawLabel: "Supervisor Name",
		},
		{
			StableID: "w-misplaced", Page: 5, RawTypeCode: widget.TypeText,
			Rect:      widget.Rect{X: 10, Y: 40, Width: 200, Height: 12},
			FieldName: "form1[0].Section13_1[0].TextField1[0]", RawLabel: "Employer",
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestService writes the index, ranges and widget files into a fresh
// workspace.
func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "index.yaml", testIndex)
	writeFile(t, dir, "ranges.yaml", testRanges)
	require.NoError(t, widget.WriteFile(filepath.Join(dir, "widgets.json"), testWidgets()))

	svc, err := NewService(Options{
		Dir:         dir,
		MaxFileSize: 1 << 20,
		Index:       "index.yaml",
		Ranges:      "ranges.yaml",
		Inventory:   "inventory.json",
	})
	require.NoError(t, err)
	return svc, dir
}

func build(t *testing.T, svc *Service) *BuildResult {
	t.Helper()
	res, err := svc.BuildInventory(BuildRequest{Source: "widgets.json", Version: "v1"})
	require.NoError(t, err)
	return res
}

func fingerprintOf(t *testing.T, path, fieldName string) string {
	t.Helper()
	inv, err := inventory.Load(path)
	require.NoError(t, err)
	for _, r := range inv.Records {
		if r.FieldName == fieldName {
			return r.Fingerprint
		}
	}
	t.Fatalf("no record for %s", fieldName)
	return ""
}

func TestNewServiceRequiresDir(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

func TestBuildInventory(t *testing.T) {
	svc, dir := newTestService(t)

	res := build(t, svc)
	assert.Equal(t, filepath.Join(dir, "inventory.json"), res.Path)
	assert.Equal(t, "v1", res.Version)
	assert.Equal(t, 3, res.Widgets)
	assert.Equal(t, 3, res.TotalFields)
	assert.Equal(t, 0, res.Unresolved)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "13", res.Sections[0].Section)
	assert.Nil(t, res.Reconcile)

	inv, err := inventory.Load(res.Path)
	require.NoError(t, err)
	assert.Len(t, inv.Records, 3)
}

func TestBuildDerivesVersionFromSource(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.BuildInventory(BuildRequest{Source: "widgets.json"})
	require.NoError(t, err)
	assert.Regexp(t, `^widgets@[0-9a-f]{12}$`, res.Version)
}

func TestBuildWithReconcile(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.BuildInventory(BuildRequest{Source: "widgets.json", Version: "v1", Reconcile: true})
	require.NoError(t, err)
	require.NotNil(t, res.Reconcile)
	assert.Equal(t, 1, res.Reconcile.CorrectedRecords)
	assert.Len(t, res.Sections, 2)
}

func TestBuildRejectsSourceOutsideWorkspace(t *testing.T) {
	svc, _ := newTestService(t)
	outside := filepath.Join(t.TempDir(), "widgets.json")
	require.NoError(t, widget.WriteFile(outside, testWidgets()))

	_, err := svc.BuildInventory(BuildRequest{Source: outside})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security validation failed")
}

func TestBuildRejectsInvalidIndex(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "bad-index.yaml", "sections:\n  \"13\":\n    subsections:\n      13A.2:\n        entries:\n          first: {fieldIds: [a]}\n")

	_, err := svc.BuildInventory(BuildRequest{Source: "widgets.json", Index: "bad-index.yaml"})
	require.Error(t, err)
	assert.True(t, formerr.Is(err, formerr.ErrorTypeInvalidArtifact))
}

func TestValidateAndReconcile(t *testing.T) {
	svc, dir := newTestService(t)
	build(t, svc)

	val, err := svc.Validate(ValidateRequest{})
	require.NoError(t, err)
	require.Len(t, val.Issues, 1)
	assert.Equal(t, "form1[0].Section13_1[0].TextField1[0]", val.Issues[0].FieldName)
	assert.Equal(t, formerr.ErrorTypeSectionPageMismatch, val.Issues[0].Type)

	dry, err := svc.Reconcile(ReconcileRequest{DryRun: true})
	require.NoError(t, err)
	assert.False(t, dry.Saved)
	assert.Equal(t, 1, dry.Report.CorrectedRecords)

	val, err = svc.Validate(ValidateRequest{})
	require.NoError(t, err)
	assert.Len(t, val.Issues, 1, "a dry run leaves the artifact untouched")

	rec, err := svc.Reconcile(ReconcileRequest{})
	require.NoError(t, err)
	assert.True(t, rec.Saved)
	require.Len(t, rec.Report.Corrections, 1)
	assert.Equal(t, "page 5 not in section 13 range [17-24]; reassigned to section 1",
		rec.Report.Corrections[0].Reason)

	val, err = svc.Validate(ValidateRequest{})
	require.NoError(t, err)
	assert.Empty(t, val.Issues)

	again, err := svc.Reconcile(ReconcileRequest{})
	require.NoError(t, err)
	assert.False(t, again.Saved)
	assert.Equal(t, 0, again.Report.CorrectedRecords)

	inv, err := inventory.Load(filepath.Join(dir, "inventory.json"))
	require.NoError(t, err)
	assert.Len(t, inv.BySection["1"], 1)
}

func TestReconcileRejectsInvalidRanges(t *testing.T) {
	svc, dir := newTestService(t)
	build(t, svc)
	writeFile(t, dir, "short.yaml", `{"13": [17]}`)

	_, err := svc.Reconcile(ReconcileRequest{Ranges: "short.yaml"})
	require.Error(t, err)
	assert.True(t, formerr.Is(err, formerr.ErrorTypeInvalidArtifact))
}

func TestDetectDrift(t *testing.T) {
	svc, dir := newTestService(t)
	build(t, svc)

	res, err := svc.DetectDrift(DriftRequest{Source: "widgets.json"})
	require.NoError(t, err)
	assert.False(t, res.Report.Drifted())
	assert.Equal(t, 3, res.Report.Unchanged)

	moved := testWidgets()
	moved[1].Page = 19
	require.NoError(t, widget.WriteFile(filepath.Join(dir, "live.json"), moved))

	res, err = svc.DetectDrift(DriftRequest{Source: "live.json"})
	require.NoError(t, err)
	assert.True(t, res.Report.Drifted())
	require.Len(t, res.Report.Changed, 1)
	assert.Equal(t, "form1[0].Section13_2[1].TextField11[0]", res.Report.Changed[0].FieldName)
	assert.Contains(t, res.Report.Changed[0].Reasons, inventory.DriftPage)
}

func TestEntries(t *testing.T) {
	svc, dir := newTestService(t)
	res := build(t, svc)

	fp1 := fingerprintOf(t, res.Path, "form1[0].Section13_2[0].TextField11[0]")
	fp2 := fingerprintOf(t, res.Path, "form1[0].Section13_2[1].TextField11[0]")
	values, err := json.Marshal(map[string]string{fp1: "Smith", fp2: "Jones"})
	require.NoError(t, err)
	writeFile(t, dir, "values.json", string(values))

	list, err := svc.Entries(EntriesRequest{Action: EntriesList})
	require.NoError(t, err)
	assert.Equal(t, []SectionEntries{{
		Section:    "13",
		MaxEntries: 3,
		State:      entries.State{Active: []int{0}, Expanded: []int{0}},
	}}, list.Sections)

	req := EntriesRequest{Section: "13", StateFile: "entries.json"}

	req.Action = EntriesAdd
	added, err := svc.Entries(req)
	require.NoError(t, err)
	assert.Equal(t, 1, added.Entry)

	added, err = svc.Entries(req)
	require.NoError(t, err)
	assert.Equal(t, 2, added.Entry, "state carries over through the state file")
	assert.Equal(t, []int{0, 1, 2}, added.State.Active)

	removed, err := svc.Entries(EntriesRequest{
		Section: "13", StateFile: "entries.json", Action: EntriesRemove, Entry: 1,
		Values: "values.json", KeyMode: "fingerprint",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{fp1}, removed.ClearedFields)
	assert.Equal(t, 1, removed.ClearedValues)
	assert.Equal(t, []int{0, 2}, removed.State.Active)
	assert.NotContains(t, removed.ActiveFields, fp1)

	data, err := os.ReadFile(filepath.Join(dir, "values.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"`+fp2+`": "Jones"}`, string(data))

	req.Action = EntriesToggle
	req.Entry = 2
	toggled, err := svc.Entries(req)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, toggled.State.Expanded)
	assert.Equal(t, []int{0, 2}, toggled.State.Active)

	req.Action = EntriesShow
	shown, err := svc.Entries(req)
	require.NoError(t, err)
	assert.Equal(t, entries.State{Active: []int{0, 2}, Expanded: []int{0}}, *shown.State)

	req.Action = EntriesToggle
	req.Entry = 0
	_, err = svc.Entries(req)
	require.NoError(t, err)

	req.Action = EntriesShow
	shown, err = svc.Entries(req)
	require.NoError(t, err)
	assert.Equal(t, entries.State{Active: []int{0, 2}, Expanded: []int{}}, *shown.State,
		"collapsing entry 0 survives the state file")
}

func TestEntriesErrors(t *testing.T) {
	svc, _ := newTestService(t)
	build(t, svc)

	_, err := svc.Entries(EntriesRequest{Action: "explode", Section: "13"})
	assert.Error(t, err)

	_, err = svc.Entries(EntriesRequest{Action: EntriesAdd, Section: "2"})
	assert.ErrorIs(t, err, entries.ErrNotMultiEntry)

	_, err = svc.Entries(EntriesRequest{Action: EntriesToggle, Section: "13", Entry: 7})
	assert.ErrorIs(t, err, entries.ErrEntryOutOfRange)
}

func TestFillGuardsPaths(t *testing.T) {
	svc, dir := newTestService(t)
	build(t, svc)
	writeFile(t, dir, "values.json", `{}`)

	_, err := svc.Fill(FillRequest{PDF: "missing.pdf", Values: "values.json"})
	assert.Error(t, err)

	_, err = svc.Fill(FillRequest{PDF: "../form.pdf", Values: "values.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security validation failed")
}

func TestFillPDF(t *testing.T) {
	dir := t.TempDir()
	acroformtest.Write(t, dir, "form.pdf")
	svc, err := NewService(Options{Dir: dir, Inventory: "inventory.json"})
	require.NoError(t, err)

	built, err := svc.BuildInventory(BuildRequest{Source: "form.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 4, built.Widgets)

	values, err := json.Marshal(map[string]any{
		fingerprintOf(t, built.Path, acroformtest.TextField): "Jane (Doe)",
		fingerprintOf(t, built.Path, acroformtest.Checkbox):  true,
		fingerprintOf(t, built.Path, acroformtest.Radio):     "no",
	})
	require.NoError(t, err)
	writeFile(t, dir, "values.json", string(values))

	res, err := svc.Fill(FillRequest{PDF: "form.pdf", Values: "values.json", KeyMode: "fingerprint"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "form.filled.pdf"), res.Output)
	assert.Equal(t, 3, res.Result.Applied)
	assert.Zero(t, res.Result.Errored)
	assert.True(t, res.Result.ShadowLayerRemoved)

	filled, err := acroform.Open(res.Output)
	require.NoError(t, err)
	name, err := filled.Value(acroformtest.TextField)
	require.NoError(t, err)
	assert.Equal(t, "Jane (Doe)", name)
	checked, err := filled.Checked(acroformtest.Checkbox)
	require.NoError(t, err)
	assert.True(t, checked)
	choice, err := filled.Value(acroformtest.Radio)
	require.NoError(t, err)
	assert.Equal(t, "NO", choice)

	removed, err := filled.RemoveShadowLayer()
	require.NoError(t, err)
	assert.False(t, removed, "the filled copy carries no XFA")
}

func TestProposeRangesGuardsPaths(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ProposeRanges(RangesRequest{PDF: "/etc/passwd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security validation failed")
}
