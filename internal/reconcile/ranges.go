package reconcile

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"

	"github.com/a3tai/formkey/internal/structure"
)

// PageRange is an inclusive page span
type PageRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether page lies within the range
func (r PageRange) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// String formats the range as "[start-end]"
func (r PageRange) String() string {
	return fmt.Sprintf("[%d-%d]", r.Start, r.End)
}

// PageRangeTable maps section ids to the pages they occupy. Adjacent
// sections may share a page.
type PageRangeTable map[string]PageRange

// DefaultPageRanges returns the table for the target form family. Override
// it with a YAML table when the form revision differs.
func DefaultPageRanges() PageRangeTable {
	t := PageRangeTable{
		"7":  {6, 6},
		"8":  {6, 6},
		"9":  {6, 7},
		"10": {8, 9},
		"11": {10, 13},
		"12": {14, 16},
		"13": {17, 24},
		"14": {25, 25},
		"15": {26, 28},
		"16": {29, 30},
		"17": {31, 34},
		"18": {35, 41},
		"19": {42, 43},
		"20": {44, 52},
		"21": {53, 60},
		"22": {61, 64},
		"23": {65, 70},
		"24": {71, 72},
		"25": {73, 74},
		"26": {75, 83},
		"27": {84, 85},
		"28": {86, 86},
		"29": {87, 90},
		"30": {91, 136},
	}
	for s := 1; s <= 6; s++ {
		t[strconv.Itoa(s)] = PageRange{5, 5}
	}
	return t
}

type pageRangeFile struct {
	Sections map[string][]int `yaml:"sections"`
}

// LoadPageRanges reads a table of the form
//
//	sections:
//	  "13": [17, 24]
//
// A bare section map without the "sections" key is accepted too.
func LoadPageRanges(path string) (PageRangeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page-range table: %w", err)
	}
	return ParsePageRanges(data)
}

// ParsePageRanges decodes a page-range table from YAML or JSON
func ParsePageRanges(data []byte) (PageRangeTable, error) {
	var file pageRangeFile
	if err := yaml.Unmarshal(data, &file); err != nil || file.Sections == nil {
		var bare map[string][]int
		if err := yaml.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("failed to decode page-range table: %w", err)
		}
		file.Sections = bare
	}

	t := make(PageRangeTable, len(file.Sections))
	for section, pages := range file.Sections {
		if len(pages) != 2 {
			return nil, fmt.Errorf("section %s: expected [start, end], got %v", section, pages)
		}
		t[section] = PageRange{Start: pages[0], End: pages[1]}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Marshal encodes the table in the form LoadPageRanges reads
func (t PageRangeTable) Marshal() ([]byte, error) {
	file := pageRangeFile{Sections: make(map[string][]int, len(t))}
	for s, r := range t {
		file.Sections[s] = []int{r.Start, r.End}
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page-range table: %w", err)
	}
	return data, nil
}

// Validate checks that every range is well formed
func (t PageRangeTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("page-range table is empty")
	}
	for _, s := range t.Sections() {
		r := t[s]
		if r.Start < 1 || r.End < r.Start {
			return fmt.Errorf("section %s has invalid page range %s", s, r)
		}
	}
	return nil
}

// Sections returns the section ids in numeric order
func (t PageRangeTable) Sections() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	structure.SortSectionIDs(ids)
	return ids
}

// Contains reports whether section's range contains page; unknown sections
// contain nothing.
func (t PageRangeTable) Contains(section string, page int) bool {
	r, ok := t[section]
	return ok && r.Contains(page)
}

// SectionsFor returns every section whose range contains page, lowest first.
func (t PageRangeTable) SectionsFor(page int) []string {
	var out []string
	for _, s := range t.Sections() {
		if t[s].Contains(page) {
			out = append(out, s)
		}
	}
	return out
}

// Lowest returns the lowest-numbered section containing page. Ties between
// sections sharing the page go to the lower numeric id.
func (t PageRangeTable) Lowest(page int) (string, bool) {
	for _, s := range t.Sections() {
		if t[s].Contains(page) {
			return s, true
		}
	}
	return "", false
}

// RangeDiff is one section whose range differs between two tables
type RangeDiff struct {
	Section    string     `json:"section"`
	Configured *PageRange `json:"configured,omitempty"`
	Proposed   *PageRange `json:"proposed,omitempty"`
}

// Diff compares t (the configured table) with a proposed one.
func (t PageRangeTable) Diff(proposed PageRangeTable) []RangeDiff {
	ids := map[string]bool{}
	for id := range t {
		ids[id] = true
	}
	for id := range proposed {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	structure.SortSectionIDs(sorted)

	var out []RangeDiff
	for _, id := range sorted {
		a, inA := t[id]
		b, inB := proposed[id]
		if inA && inB && a == b {
			continue
		}
		d := RangeDiff{Section: id}
		if inA {
			d.Configured = &a
		}
		if inB {
			d.Proposed = &b
		}
		out = append(out, d)
	}
	return out
}
