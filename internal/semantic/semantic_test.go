package semantic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formkey/internal/structure"
	"github.com/a3tai/formkey/internal/widget"
)

func TestLabelCache(t *testing.T) {
	t.Run("lru eviction", func(t *testing.T) {
		c := NewLabelCache("v1", 2)
		c.Put("a", Segment{Name: "a"})
		c.Put("b", Segment{Name: "b"})

		_, ok := c.Get("a")
		require.True(t, ok)

		c.Put("c", Segment{Name: "c"})
		_, ok = c.Get("b")
		assert.False(t, ok, "b was least recently used")
		_, ok = c.Get("a")
		assert.True(t, ok)

		stats := c.Stats()
		assert.Equal(t, int64(1), stats.Evictions)
		assert.Equal(t, 2, stats.Size)
		assert.Equal(t, int64(2), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
	})

	t.Run("version invalidation", func(t *testing.T) {
		c := NewLabelCache("v1", 0)
		c.Put("a", Segment{Name: "a"})

		assert.False(t, c.Invalidate("v1"))
		_, ok := c.Get("a")
		assert.True(t, ok)

		assert.True(t, c.Invalidate("v2"))
		assert.Equal(t, "v2", c.Version())
		_, ok = c.Get("a")
		assert.False(t, ok)
	})
}

func TestStripBoilerplate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Section 13A.2 Entry #1. Supervisor Name", "Supervisor Name"},
		{"Section 13 - Employment. Provide dates", "Employment"},
		{"Sections 1-6: Last name (if none, enter NLN)", "Last name"},
		{"  City  ", "City"},
		{"Section 9", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBoilerplate(tt.in))
		})
	}
}

func TestLabelNormalizer(t *testing.T) {
	n := NewLabelNormalizer(nil)

	tests := []struct {
		name      string
		label     string
		fieldName string
		want      Segment
	}{
		{
			name:  "short label is camel-cased",
			label: "Section 13A.2 Entry #1. Supervisor Name",
			want:  Segment{Name: "supervisorName", Source: LabelSourceLabel},
		},
		{
			name:  "possessive is dropped",
			label: "Supervisor's name",
			want:  Segment{Name: "supervisorName", Source: LabelSourceLabel},
		},
		{
			name:  "verbose label uses lookup table",
			label: "Provide the name of your supervisor at this employer during the period listed",
			want:  Segment{Name: "supervisorName", Source: LabelSourceLookup},
		},
		{
			name:  "verbose label without lookup hit is truncated",
			label: "Describe briefly whatever circumstances surrounded leaving employment there",
			want:  Segment{Name: "describeBrieflyWhateverCircumstancesSurrounded", Source: LabelSourceLabel},
		},
		{
			name:      "empty label falls back to field name",
			fieldName: "form1[0].Section13_1[0].TextField11[0]",
			want:      Segment{Name: "textField11", Source: LabelSourceFieldName},
		},
		{
			name:      "boilerplate only label falls back to field name",
			label:     "Section 9",
			fieldName: "form1[0].Section9\\.1[0].p3-t68[0]",
			want:      Segment{Name: "p3T68", Source: LabelSourceFieldName},
		},
		{
			name:  "leading digit gets a prefix",
			label: "2nd address",
			want:  Segment{Name: "field2ndAddress", Source: LabelSourceLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Segment(tt.label, tt.fieldName))
		})
	}
}

func TestLabelNormalizerUsesCache(t *testing.T) {
	cache := NewLabelCache("v1", 10)
	n := NewLabelNormalizer(cache)

	first := n.Segment("City", "f")
	second := n.Segment("City", "f")
	assert.Equal(t, first, second)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestBuilder(t *testing.T) {
	field := func(label string) widget.LogicalField {
		return widget.LogicalField{FieldName: "f", RawLabel: label}
	}

	tests := []struct {
		name  string
		label string
		loc   structure.Location
		want  string
	}{
		{
			name:  "entry one maps to zero-based index",
			label: "Supervisor Name",
			loc:   structure.Location{Section: "13", Subsection: structure.StringPtr("13A.2"), Entry: structure.IntPtr(1)},
			want:  "13.employment.entries[0].supervisorName",
		},
		{
			name:  "entry zero adds no segment",
			label: "Supervisor Name",
			loc:   structure.Location{Section: "13", Subsection: structure.StringPtr("13A.2"), Entry: structure.IntPtr(0)},
			want:  "13.employment.supervisorName",
		},
		{
			name:  "root subsection is omitted",
			label: "City",
			loc:   structure.Location{Section: "9", Subsection: structure.StringPtr("root")},
			want:  "9.city",
		},
		{
			name:  "unaliased subsection keeps raw key",
			label: "City",
			loc:   structure.Location{Section: "11", Subsection: structure.StringPtr("11B")},
			want:  "11.11B.city",
		},
		{
			name:  "unknown location",
			label: "City",
			loc:   structure.Unknown(),
			want:  "unknown.city",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(DefaultAliases(), nil)
			p := b.Build(field(tt.label), tt.loc)
			assert.Equal(t, tt.want, p.Value)
			assert.False(t, p.Disambiguated)
		})
	}
}

func TestBuilderCollisionSuffix(t *testing.T) {
	b := NewBuilder(DefaultAliases(), nil)
	loc := structure.Location{Section: "2"}
	f := widget.LogicalField{FieldName: "f", RawLabel: "Date"}

	assert.Equal(t, "2.date", b.Build(f, loc).Value)

	second := b.Build(f, loc)
	assert.Equal(t, "2.date_2", second.Value)
	assert.Equal(t, "2.date", second.Base)
	assert.True(t, second.Disambiguated)

	assert.Equal(t, "2.date_3", b.Build(f, loc).Value)

	b.Reset()
	assert.Equal(t, "2.date", b.Build(f, loc).Value)
}

func TestSectionAlias(t *testing.T) {
	a := DefaultAliases().Merge(Aliases{Sections: map[string]string{"13": "employmentActivities"}})
	b := NewBuilder(a, nil)

	p := b.Build(widget.LogicalField{RawLabel: "Supervisor Name"},
		structure.Location{Section: "13", Subsection: structure.StringPtr("13A.2"), Entry: structure.IntPtr(2)})
	assert.Equal(t, "employmentActivities.employment.entries[1].supervisorName", p.Value)
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	doc := `
sections:
  "17": maritalStatus
subsections:
  "13":
    13A.2: civilianEmployment
  "21":
    21A: counseling
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	a, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, "maritalStatus", a.Section("17"))
	assert.Equal(t, "1", a.Section("1"))
	assert.Equal(t, "civilianEmployment", a.Subsection("13", "13A.2"))
	assert.Equal(t, "selfEmployment", a.Subsection("13", "13A.3"))
	assert.Equal(t, "counseling", a.Subsection("21", "21A"))

	_, err = LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSectionTitlesCoverForm(t *testing.T) {
	assert.Len(t, SectionTitles, 30)
	assert.Equal(t, "Employment Activities", SectionTitles["13"])
}
