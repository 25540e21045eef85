// Package headings finds "Section N" headings in page text and proposes a
// page-range table from them.
package headings

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/formkey/internal/reconcile"
	"github.com/a3tai/formkey/internal/structure"
)

// MaxSection is the highest section number a heading may name
const MaxSection = 30

var headingRe = regexp.MustCompile(`\bSection\s+(\d{1,2})\b`)

// Heading is a section heading and the page it was found on
type Heading struct {
	Section string `json:"section"`
	Page    int    `json:"page"`
}

// PageTexts returns the plain text of every page, one-based by slice index
// plus one. Pages whose text cannot be decoded are returned empty.
func PageTexts(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages := make([]string, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// Find returns the accepted headings in page order. Section numbers must rise
// through the document: a mention of an earlier section (a cross reference)
// only extends that section if it is already known.
func Find(pages []string) []Heading {
	var out []Heading
	highest := 0
	seen := make(map[int]bool)
	for i, text := range pages {
		for _, m := range headingRe.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > MaxSection {
				continue
			}
			if n < highest && !seen[n] {
				continue
			}
			if n > highest {
				highest = n
			}
			seen[n] = true
			out = append(out, Heading{Section: strconv.Itoa(n), Page: i + 1})
		}
	}
	return out
}

// Propose builds a page-range table from headings. A section starts at its
// first heading and runs to its last heading or the page before the next
// section starts, whichever is later. The final section runs to the last page.
func Propose(found []Heading, pageCount int) reconcile.PageRangeTable {
	first := make(map[string]int)
	last := make(map[string]int)
	for _, h := range found {
		if _, ok := first[h.Section]; !ok {
			first[h.Section] = h.Page
		}
		if h.Page > last[h.Section] {
			last[h.Section] = h.Page
		}
	}

	sections := make([]string, 0, len(first))
	for s := range first {
		sections = append(sections, s)
	}
	structure.SortSectionIDs(sections)

	table := make(reconcile.PageRangeTable, len(sections))
	for i, s := range sections {
		end := last[s]
		if i+1 < len(sections) {
			if next := first[sections[i+1]] - 1; next > end {
				end = next
			}
		} else if pageCount > end {
			end = pageCount
		}
		if end < first[s] {
			end = first[s]
		}
		table[s] = reconcile.PageRange{Start: first[s], End: end}
	}
	return table
}

// Discover scans a PDF and proposes its page-range table
func Discover(path string) (reconcile.PageRangeTable, []Heading, error) {
	pages, err := PageTexts(path)
	if err != nil {
		return nil, nil, err
	}
	found := Find(pages)
	if len(found) == 0 {
		return nil, nil, fmt.Errorf("no section headings found in %d pages", len(pages))
	}
	return Propose(found, len(pages)), found, nil
}
