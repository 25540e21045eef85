package structure

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Index is the per-document membership tree section → subsection → entry →
// field ids. Ids may be widget stable ids or field names.
type Index struct {
	Version  string                 `yaml:"version,omitempty"`
	Sections map[string]SectionNode `yaml:"sections"`
}

// SectionNode lists a section's subsections and any fields attached
// directly to the section.
type SectionNode struct {
	FieldIDs    []string                  `yaml:"fieldIds,omitempty"`
	Subsections map[string]SubsectionNode `yaml:"subsections,omitempty"`
}

// SubsectionNode lists non-repeating fields and repeating entries.
type SubsectionNode struct {
	FieldIDs []string             `yaml:"fieldIds,omitempty"`
	Entries  map[string]EntryNode `yaml:"entries,omitempty"`
}

// EntryNode lists the fields of one entry slot.
type EntryNode struct {
	FieldIDs []string `yaml:"fieldIds"`
}

// LoadIndex reads a structural index from YAML or JSON. Both the wrapped
// form ({"sections": {...}}) and a bare section map are accepted.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read structural index: %w", err)
	}
	return ParseIndex(data)
}

// ParseIndex decodes a structural index document
func ParseIndex(data []byte) (*Index, error) {
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err == nil && len(idx.Sections) > 0 {
		return &idx, idx.validate()
	}

	var bare map[string]SectionNode
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to decode structural index: %w", err)
	}
	idx = Index{Sections: bare}
	return &idx, idx.validate()
}

func (idx *Index) validate() error {
	for sec, node := range idx.Sections {
		for sub, subNode := range node.Subsections {
			for key := range subNode.Entries {
				if _, err := strconv.Atoi(key); err != nil {
					return fmt.Errorf("section %s subsection %s: entry key %q is not a number", sec, sub, key)
				}
			}
		}
	}
	return nil
}

// SectionIDs returns section ids in search order: numeric ids ascending,
// then any non-numeric ids lexically.
func (idx *Index) SectionIDs() []string {
	ids := make([]string, 0, len(idx.Sections))
	for id := range idx.Sections {
		ids = append(ids, id)
	}
	SortSectionIDs(ids)
	return ids
}

// SortSectionIDs sorts ids numerically where possible
func SortSectionIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return LessSectionID(ids[i], ids[j])
	})
}

// LessSectionID orders numeric section ids before non-numeric ones
func LessSectionID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type numberedEntry struct {
	number int
	node   EntryNode
}

// sortedEntries returns entries ascending by number; keys were checked to
// be numeric by validate.
func sortedEntries(m map[string]EntryNode) []numberedEntry {
	out := make([]numberedEntry, 0, len(m))
	for k, node := range m {
		if n, err := strconv.Atoi(k); err == nil {
			out = append(out, numberedEntry{number: n, node: node})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}
