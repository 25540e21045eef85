package reconcile

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formkey/internal/formerr"
	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/structure"
)

func newInventory(records ...*inventory.FieldRecord) *inventory.Inventory {
	inv := inventory.New("test", time.Time{})
	for _, r := range records {
		inv.Records[r.Fingerprint] = r
	}
	inv.Reindex()
	return inv
}

func record(fp, name, section string, page int) *inventory.FieldRecord {
	return &inventory.FieldRecord{
		Fingerprint:     fp,
		FieldName:       name,
		UIPath:          section + "." + name,
		Page:            page,
		LogicalLocation: structure.Location{Section: section},
	}
}

func TestDefaultPageRanges(t *testing.T) {
	table := DefaultPageRanges()
	require.NoError(t, table.Validate())
	assert.Len(t, table, 30)
	assert.Equal(t, PageRange{17, 24}, table["13"])
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, table.SectionsFor(5))
	assert.Equal(t, []string{"7", "8", "9"}, table.SectionsFor(6))

	s, ok := table.Lowest(6)
	assert.True(t, ok)
	assert.Equal(t, "7", s)

	_, ok = table.Lowest(500)
	assert.False(t, ok)
}

func TestReconcileCorrectsMismatchedSection(t *testing.T) {
	inv := newInventory(
		record("a", "emp", "13", 25),
		record("b", "ok", "13", 20),
	)

	var buf bytes.Buffer
	r := New(nil, WithLogger(log.New(&buf, "", 0), true))
	report := r.Reconcile(inv)

	assert.Equal(t, 2, report.TotalRecords)
	assert.Equal(t, 1, report.CorrectedRecords)
	require.Len(t, report.Corrections, 1)

	c := report.Corrections[0]
	assert.Equal(t, "a", c.FieldID)
	assert.Equal(t, "emp", c.FieldName)
	assert.Equal(t, "13", c.OriginalSection)
	assert.Equal(t, "14", c.CorrectedSection)
	assert.Equal(t, 25, c.Page)
	assert.Equal(t, formerr.ErrorTypeSectionPageMismatch, c.Type)
	assert.Contains(t, c.Reason, "not in section 13 range")
	assert.Equal(t, "page 25 not in section 13 range [17-24]; reassigned to section 14", c.Reason)
	assert.Contains(t, buf.String(), c.Reason)

	assert.Equal(t, "14", inv.Records["a"].LogicalLocation.Section)
	assert.Equal(t, []string{"a"}, inv.BySection["14"])
	assert.Equal(t, []string{"b"}, inv.BySection["13"])
	assert.Equal(t, "13.emp", inv.Records["a"].UIPath, "uiPath is never rewritten")
}

func TestReconcileDropsStaleSubsection(t *testing.T) {
	moved := record("a", "emp", "13", 25)
	moved.LogicalLocation.Subsection = structure.StringPtr("13A.2")
	moved.LogicalLocation.Entry = structure.IntPtr(2)
	kept := record("b", "ok", "13", 20)
	kept.LogicalLocation.Subsection = structure.StringPtr("13A.1")
	kept.LogicalLocation.Entry = structure.IntPtr(1)
	inv := newInventory(moved, kept)
	require.Equal(t, []string{"a"}, inv.BySubsection["13.13A.2"])

	report := New(nil).Reconcile(inv)
	require.Equal(t, 1, report.CorrectedRecords)

	loc := inv.Records["a"].LogicalLocation
	assert.Equal(t, "14", loc.Section)
	assert.Nil(t, loc.Subsection)
	assert.Nil(t, loc.Entry)
	assert.NotContains(t, inv.BySubsection, "14.13A.2")
	assert.NotContains(t, inv.BySubsection, "13.13A.2")
	assert.Equal(t, []string{"b"}, inv.BySubsection["13.13A.1"])
	assert.Equal(t, 1, *inv.Records["b"].LogicalLocation.Entry)
}

func TestReconcileAssignsUnsetSections(t *testing.T) {
	inv := newInventory(
		record("a", "orphan", structure.UnknownSection, 6),
		record("b", "blank", "", 30),
	)
	report := New(nil).Reconcile(inv)

	require.Len(t, report.Corrections, 2)
	assert.Equal(t, "7", inv.Records["a"].LogicalLocation.Section)
	assert.Equal(t, "16", inv.Records["b"].LogicalLocation.Section)
	for _, c := range report.Corrections {
		assert.Equal(t, formerr.ErrorTypeMissingStructuralMapping, c.Type)
		assert.Contains(t, c.Reason, "no structural mapping")
	}
	assert.Empty(t, inv.BySection[structure.UnknownSection])
}

func TestReconcileLeavesUncoveredPages(t *testing.T) {
	inv := newInventory(record("a", "far", "13", 400))
	report := New(nil).Reconcile(inv)

	assert.Equal(t, 0, report.CorrectedRecords)
	require.Len(t, report.Unplaced, 1)
	assert.Equal(t, "13", inv.Records["a"].LogicalLocation.Section)
}

func TestReconcileIsIdempotent(t *testing.T) {
	inv := newInventory(
		record("a", "x", "13", 25),
		record("b", "y", "", 6),
		record("c", "z", "2", 90),
		record("d", "w", "30", 100),
	)
	r := New(nil)

	first := r.Reconcile(inv)
	assert.Equal(t, 3, first.CorrectedRecords)

	second := r.Reconcile(inv)
	assert.Equal(t, 0, second.CorrectedRecords)
	assert.Empty(t, second.Corrections)
}

func TestReconcileCorrectness(t *testing.T) {
	table := DefaultPageRanges()
	var records []*inventory.FieldRecord
	sections := []string{"", "unknown", "1", "9", "13", "14", "21", "30"}
	n := 0
	for _, s := range sections {
		for page := 1; page <= 136; page += 7 {
			n++
			records = append(records, record(string(rune('A'+n%26))+string(rune('a'+n/26)), "f", s, page))
		}
	}
	inv := newInventory(records...)
	report := New(table).Reconcile(inv)

	unplaced := map[string]bool{}
	for _, u := range report.Unplaced {
		unplaced[u.FieldID] = true
	}
	for id, rec := range inv.Records {
		if unplaced[id] {
			continue
		}
		pr := table[rec.LogicalLocation.Section]
		assert.True(t, pr.Contains(rec.Page), "record %s page %d in section %s", id, rec.Page, rec.LogicalLocation.Section)
	}
	assert.Len(t, New(table).ValidateSectionAssignments(inv), len(report.Unplaced))
}

func TestValidateSectionAssignmentsIsReadOnly(t *testing.T) {
	inv := newInventory(
		record("a", "x", "13", 25),
		record("b", "y", "", 6),
		record("c", "z", "13", 17),
	)
	issues := New(nil).ValidateSectionAssignments(inv)

	require.Len(t, issues, 2)
	assert.Equal(t, formerr.ErrorTypeMissingStructuralMapping, issues[0].Type)
	assert.Equal(t, "b", issues[0].FieldID)
	assert.Equal(t, formerr.ErrorTypeSectionPageMismatch, issues[1].Type)
	assert.Equal(t, "page 25 not in section 13 range [17-24]", issues[1].Message)

	assert.Equal(t, "13", inv.Records["a"].LogicalLocation.Section)
	assert.Equal(t, "", inv.Records["b"].LogicalLocation.Section)
}

func TestParsePageRanges(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    PageRangeTable
		wantErr string
	}{
		{
			name: "wrapped yaml",
			doc:  "sections:\n  \"13\": [17, 24]\n  \"14\": [25, 25]\n",
			want: PageRangeTable{"13": {17, 24}, "14": {25, 25}},
		},
		{
			name: "bare json",
			doc:  `{"1": [1, 2]}`,
			want: PageRangeTable{"1": {1, 2}},
		},
		{
			name:    "wrong arity",
			doc:     `{"1": [1]}`,
			wantErr: "expected [start, end]",
		},
		{
			name:    "reversed range",
			doc:     `{"1": [5, 2]}`,
			wantErr: "invalid page range",
		},
		{
			name:    "empty",
			doc:     `{}`,
			wantErr: "empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRanges([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadPageRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sections:\n  \"13\": [17, 24]\n"), 0o644))

	table, err := LoadPageRanges(path)
	require.NoError(t, err)
	assert.Equal(t, PageRange{17, 24}, table["13"])

	_, err = LoadPageRanges(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMarshalPageRanges(t *testing.T) {
	data, err := DefaultPageRanges().Marshal()
	require.NoError(t, err)

	back, err := ParsePageRanges(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageRanges(), back)
}

func TestDiff(t *testing.T) {
	configured := PageRangeTable{"1": {1, 2}, "2": {3, 4}, "3": {5, 6}}
	proposed := PageRangeTable{"1": {1, 2}, "2": {3, 5}, "4": {7, 8}}

	diffs := configured.Diff(proposed)
	require.Len(t, diffs, 3)

	assert.Equal(t, "2", diffs[0].Section)
	assert.Equal(t, &PageRange{3, 4}, diffs[0].Configured)
	assert.Equal(t, &PageRange{3, 5}, diffs[0].Proposed)

	assert.Equal(t, "3", diffs[1].Section)
	assert.Nil(t, diffs[1].Proposed)

	assert.Equal(t, "4", diffs[2].Section)
	assert.Nil(t, diffs[2].Configured)
}
