package structure

import (
	"fmt"
	"strings"
)

// UnknownSection is assigned when a field cannot be placed in any section.
const UnknownSection = "unknown"

// RootSubsection is the synthetic subsection holding fields that precede any
// subsection heading.
const RootSubsection = "root"

// Location is a field's position in the document's semantic hierarchy.
// A nil Entry means the field is not part of a repeating group; entry 0 is
// the first slot.
type Location struct {
	Section    string  `json:"section"`
	Subsection *string `json:"subsection"`
	Entry      *int    `json:"entry"`
}

// Unknown returns the degraded location used for unmapped fields
func Unknown() Location {
	return Location{Section: UnknownSection}
}

// IsUnknown reports whether no section has been assigned
func (l Location) IsUnknown() bool {
	return l.Section == "" || l.Section == UnknownSection
}

// SubsectionKey returns the "section.subsection" bucket key, or "" when the
// location has no subsection.
func (l Location) SubsectionKey() string {
	if l.Subsection == nil {
		return ""
	}
	return l.Section + "." + *l.Subsection
}

// EntryOrZero returns the entry number, treating nil as slot 0
func (l Location) EntryOrZero() int {
	if l.Entry == nil {
		return 0
	}
	return *l.Entry
}

// String renders the location for logs and reports
func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Section)
	if l.Subsection != nil {
		b.WriteByte('/')
		b.WriteString(*l.Subsection)
	}
	if l.Entry != nil {
		fmt.Fprintf(&b, "#%d", *l.Entry)
	}
	return b.String()
}

// IsRootSubsection reports whether sub is the synthetic root marker for
// section, in any of the spellings extraction passes produce.
func IsRootSubsection(section, sub string) bool {
	return sub == "" || sub == RootSubsection || sub == section || sub == section+"_root"
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int {
	return &n
}
