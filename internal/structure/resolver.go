package structure

import (
	"regexp"
	"strconv"
	"strings"
)

// Source tags which path produced a resolution, so callers and tests can
// tell authoritative index hits from heuristic guesses.
type Source string

const (
	SourceIndex       Source = "index"
	SourceNamePattern Source = "name-pattern"
	SourceUnresolved  Source = "unresolved"
)

// Resolution is a resolved location plus the path that produced it.
type Resolution struct {
	Location Location `json:"location"`
	Source   Source   `json:"source"`
}

// Resolver maps a representative widget onto its logical location.
type Resolver struct {
	byID         map[string]Location
	nameFallback bool
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithNameFallback enables the field-name pattern heuristic for widgets the
// index does not list. Results are tagged SourceNamePattern.
func WithNameFallback(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.nameFallback = enabled
	}
}

// NewResolver flattens the index into an id lookup. Insertion follows the
// search order (section, then subsection, then entry, each ascending) and
// the first membership wins, so lookups return the first match.
func NewResolver(idx *Index, opts ...ResolverOption) *Resolver {
	r := &Resolver{byID: make(map[string]Location)}
	for _, opt := range opts {
		opt(r)
	}
	if idx == nil {
		return r
	}

	for _, sec := range idx.SectionIDs() {
		node := idx.Sections[sec]
		r.add(node.FieldIDs, Location{Section: sec})

		for _, sub := range sortedKeys(node.Subsections) {
			subNode := node.Subsections[sub]
			subPtr := StringPtr(sub)
			r.add(subNode.FieldIDs, Location{Section: sec, Subsection: subPtr})

			for _, e := range sortedEntries(subNode.Entries) {
				r.add(e.node.FieldIDs, Location{Section: sec, Subsection: subPtr, Entry: IntPtr(e.number)})
			}
		}
	}
	return r
}

func (r *Resolver) add(ids []string, loc Location) {
	for _, id := range ids {
		if _, seen := r.byID[id]; !seen {
			r.byID[id] = loc
		}
	}
}

// Len returns the number of ids the index maps
func (r *Resolver) Len() int {
	return len(r.byID)
}

// Resolve looks up the representative widget id, then the field name. A miss
// degrades to the unknown location rather than failing.
func (r *Resolver) Resolve(widgetID, fieldName string) Resolution {
	if loc, ok := r.byID[widgetID]; ok {
		return Resolution{Location: loc, Source: SourceIndex}
	}
	if loc, ok := r.byID[fieldName]; ok {
		return Resolution{Location: loc, Source: SourceIndex}
	}
	if r.nameFallback {
		if loc, ok := GuessFromName(fieldName); ok {
			return Resolution{Location: loc, Source: SourceNamePattern}
		}
	}
	return Resolution{Location: Unknown(), Source: SourceUnresolved}
}

var (
	sectionNameRe      = regexp.MustCompile(`(?i)section_?(\d{1,2})`)
	sectionRangeNameRe = regexp.MustCompile(`(?i)sections(\d{1,2})-(\d{1,2})`)
	continuationRe     = regexp.MustCompile(`(?i)\.(continuation\d+)\[`)
)

// ContinuationSection is where continuation-page fields are placed.
const ContinuationSection = "30"

// GuessFromName infers a section from field naming conventions such as
// "form1[0].Section13_1[0]..." or "Sections1-6.RadioButtonList[0]".
func GuessFromName(fieldName string) (Location, bool) {
	if all := sectionNameRe.FindAllStringSubmatch(fieldName, -1); len(all) > 0 {
		last := all[len(all)-1]
		return Location{Section: trimLeadingZeros(last[1])}, true
	}
	if m := sectionRangeNameRe.FindStringSubmatch(fieldName); m != nil {
		return Location{Section: trimLeadingZeros(m[1])}, true
	}
	if m := continuationRe.FindStringSubmatch(fieldName); m != nil {
		return Location{Section: ContinuationSection, Subsection: StringPtr(m[1])}, true
	}
	if strings.Contains(strings.ToLower(fieldName), "continuation") {
		return Location{Section: ContinuationSection, Subsection: StringPtr("continuation")}, true
	}
	return Location{}, false
}

func trimLeadingZeros(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}
