package inventory

import (
	"sort"

	"github.com/a3tai/formkey/internal/semantic"
	"github.com/a3tai/formkey/internal/structure"
)

// SectionSummary describes one section of a built inventory
type SectionSummary struct {
	Section     string   `json:"section"`
	Title       string   `json:"title,omitempty"`
	FieldCount  int      `json:"fieldCount"`
	Pages       []int    `json:"pages"`
	PageRange   [2]int   `json:"pageRange"`
	Subsections []string `json:"subsections,omitempty"`
	Entries     []int    `json:"entries,omitempty"`
}

// SectionSummary returns one summary per section, in section order.
func (inv *Inventory) SectionSummary() []SectionSummary {
	ids := make([]string, 0, len(inv.BySection))
	for id := range inv.BySection {
		ids = append(ids, id)
	}
	structure.SortSectionIDs(ids)

	out := make([]SectionSummary, 0, len(ids))
	for _, id := range ids {
		s := SectionSummary{Section: id, Title: semantic.SectionTitles[id]}
		pages := map[int]bool{}
		subs := map[string]bool{}
		entries := map[int]bool{}

		for _, r := range inv.Section(id) {
			s.FieldCount++
			pages[r.Page] = true
			if loc := r.LogicalLocation; loc.Subsection != nil {
				subs[*loc.Subsection] = true
			}
			if r.LogicalLocation.Entry != nil {
				entries[*r.LogicalLocation.Entry] = true
			}
		}

		for p := range pages {
			s.Pages = append(s.Pages, p)
		}
		sort.Ints(s.Pages)
		if len(s.Pages) > 0 {
			s.PageRange = [2]int{s.Pages[0], s.Pages[len(s.Pages)-1]}
		}
		for sub := range subs {
			s.Subsections = append(s.Subsections, sub)
		}
		sort.Strings(s.Subsections)
		for e := range entries {
			s.Entries = append(s.Entries, e)
		}
		sort.Ints(s.Entries)

		out = append(out, s)
	}
	return out
}
