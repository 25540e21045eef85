package semantic

import (
	"fmt"
	"strings"

	"github.com/a3tai/formkey/internal/structure"
	"github.com/a3tai/formkey/internal/widget"
)

// Path is a built semantic address.
type Path struct {
	Value string `json:"value"`
	// Base is the address before any collision suffix was appended.
	Base          string      `json:"base"`
	Disambiguated bool        `json:"disambiguated,omitempty"`
	LabelSource   LabelSource `json:"labelSource"`
}

// Builder derives uiPath addresses. One Builder is used per inventory build:
// it remembers issued paths so colliding addresses get a deterministic
// "_2", "_3", ... suffix in build order.
type Builder struct {
	aliases Aliases
	labels  *LabelNormalizer
	issued  map[string]int
}

// NewBuilder creates a path builder
func NewBuilder(aliases Aliases, labels *LabelNormalizer) *Builder {
	if labels == nil {
		labels = NewLabelNormalizer(nil)
	}
	return &Builder{
		aliases: aliases,
		labels:  labels,
		issued:  make(map[string]int),
	}
}

// Base builds the address for a field without touching collision state.
// Entry numbering is one-based internally and zero-based in the path, so
// entry N>0 becomes entries[N-1]; entry 0 and nil add no segment.
func (b *Builder) Base(f widget.LogicalField, loc structure.Location) (string, LabelSource) {
	segments := make([]string, 0, 4)
	segments = append(segments, b.aliases.Section(loc.Section))

	if loc.Subsection != nil && !structure.IsRootSubsection(loc.Section, *loc.Subsection) {
		segments = append(segments, b.aliases.Subsection(loc.Section, *loc.Subsection))
	}
	if loc.Entry != nil && *loc.Entry > 0 {
		segments = append(segments, fmt.Sprintf("entries[%d]", *loc.Entry-1))
	}

	seg := b.labels.Segment(f.RawLabel, f.FieldName)
	segments = append(segments, seg.Name)
	return strings.Join(segments, "."), seg.Source
}

// Build returns a path unique within this builder's run.
func (b *Builder) Build(f widget.LogicalField, loc structure.Location) Path {
	base, src := b.Base(f, loc)
	p := Path{Value: base, Base: base, LabelSource: src}

	n := b.issued[base]
	b.issued[base] = n + 1
	if n == 0 {
		return p
	}

	for suffix := n + 1; ; suffix++ {
		candidate := fmt.Sprintf("%s_%d", base, suffix)
		if _, taken := b.issued[candidate]; taken {
			continue
		}
		b.issued[candidate] = 1
		p.Value = candidate
		p.Disambiguated = true
		return p
	}
}

// Reset clears collision state for a new build
func (b *Builder) Reset() {
	b.issued = make(map[string]int)
}
