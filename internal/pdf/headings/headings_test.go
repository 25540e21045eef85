package headings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formkey/internal/reconcile"
)

func TestFind(t *testing.T) {
	pages := []string{
		"Standard Form 86 Instructions",
		"Section 1 - Full Name Section 2 - Date of Birth",
		"Section 3 - Place of Birth",
		"continued from Section 2 ... Section 4 - Social Security Number",
		"as reported in Section 1 above",
		"Section 5 - Other Names Used",
		"Section 99 is not a heading",
	}

	got := Find(pages)
	assert.Equal(t, []Heading{
		{Section: "1", Page: 2},
		{Section: "2", Page: 2},
		{Section: "3", Page: 3},
		{Section: "2", Page: 4},
		{Section: "4", Page: 4},
		{Section: "1", Page: 5},
		{Section: "5", Page: 6},
	}, got)
}

func TestFindSkipsUnknownBackReferences(t *testing.T) {
	got := Find([]string{"Section 13 Employment", "see Section 11 for residences"})
	assert.Equal(t, []Heading{{Section: "13", Page: 1}}, got)
}

func TestPropose(t *testing.T) {
	tests := []struct {
		name      string
		found     []Heading
		pageCount int
		want      reconcile.PageRangeTable
	}{
		{
			name:      "shared page",
			found:     []Heading{{"1", 5}, {"2", 5}, {"3", 6}},
			pageCount: 8,
			want:      reconcile.PageRangeTable{"1": {Start: 5, End: 5}, "2": {Start: 5, End: 5}, "3": {Start: 6, End: 8}},
		},
		{
			name:      "gap runs to next start",
			found:     []Heading{{"9", 6}, {"10", 8}},
			pageCount: 9,
			want:      reconcile.PageRangeTable{"9": {Start: 6, End: 7}, "10": {Start: 8, End: 9}},
		},
		{
			name:      "later mention extends the range",
			found:     []Heading{{"1", 2}, {"2", 3}, {"1", 4}, {"3", 5}},
			pageCount: 5,
			want:      reconcile.PageRangeTable{"1": {Start: 2, End: 4}, "2": {Start: 3, End: 4}, "3": {Start: 5, End: 5}},
		},
		{
			name:      "numeric ordering",
			found:     []Heading{{"2", 1}, {"10", 3}, {"11", 4}},
			pageCount: 4,
			want:      reconcile.PageRangeTable{"2": {Start: 1, End: 2}, "10": {Start: 3, End: 3}, "11": {Start: 4, End: 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Propose(tt.found, tt.pageCount)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestDiscoverFixture(t *testing.T) {
	path := os.Getenv("FORMKEY_TEST_PDF")
	if path == "" {
		path = filepath.Join("..", "..", "..", "docs", "examples", "sf86.pdf")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("Test fixture %s not found", path)
	}

	table, found, err := Discover(path)
	require.NoError(t, err)
	assert.NotEmpty(t, found)
	assert.NoError(t, table.Validate())
}

func TestPageTextsMissingFile(t *testing.T) {
	_, err := PageTexts(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
