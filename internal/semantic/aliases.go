package semantic

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Aliases maps structural ids onto the human-navigable names used in paths.
type Aliases struct {
	// Sections overrides the section segment; unmapped sections use their id.
	Sections map[string]string `yaml:"sections,omitempty"`
	// Subsections maps section id → subsection key → alias.
	Subsections map[string]map[string]string `yaml:"subsections,omitempty"`
}

// SectionTitles are the printed titles of the target form's sections.
var SectionTitles = map[string]string{
	"1":  "Full Name",
	"2":  "Date of Birth",
	"3":  "Place of Birth",
	"4":  "Social Security Number",
	"5":  "Other Names Used",
	"6":  "Your Identifying Information",
	"7":  "Your Contact Information",
	"8":  "U.S. Passport Information",
	"9":  "Citizenship",
	"10": "Dual/Multiple Citizenship & Foreign Passport Information",
	"11": "Where You Have Lived",
	"12": "Where You Went to School",
	"13": "Employment Activities",
	"14": "Selective Service Record",
	"15": "Military History",
	"16": "People Who Know You Well",
	"17": "Marital/Relationship Status",
	"18": "Relatives",
	"19": "Foreign Contacts",
	"20": "Foreign Activities",
	"21": "Psychological and Emotional Health",
	"22": "Police Record",
	"23": "Illegal Use of Drugs or Drug Activity",
	"24": "Use of Alcohol",
	"25": "Investigations and Clearance Record",
	"26": "Financial Record",
	"27": "Use of Information Technology Systems",
	"28": "Involvement in Non-Criminal Court Actions",
	"29": "Association Record",
	"30": "Continuation",
}

// DefaultAliases returns the alias tables for the target form. Section
// segments stay numeric; subsections with well-known meaning get names.
func DefaultAliases() Aliases {
	return Aliases{
		Sections: map[string]string{},
		Subsections: map[string]map[string]string{
			"11": {"11A": "residences"},
			"12": {"12A": "schools", "12B": "degrees"},
			"13": {
				"13A.1": "militaryEmployment",
				"13A.2": "employment",
				"13A.3": "selfEmployment",
				"13A.4": "unemployment",
				"13A.5": "employmentRecord",
				"13A.6": "disciplinaryActions",
				"13B":   "formerFederalService",
				"13C":   "employmentRecord",
			},
			"15": {"15A": "militaryService", "15B": "disciplinaryProcedures", "15C": "foreignMilitary"},
			"17": {"17A": "currentMarriage", "17B": "formerSpouses", "17C": "cohabitants"},
			"18": {"18A": "relatives", "18B": "relativeAddresses", "18C": "foreignRelatives"},
			"19": {"19A": "foreignContacts"},
			"20": {"20A": "foreignFinancialInterests", "20B": "foreignBusiness", "20C": "foreignTravel"},
			"26": {"26A": "bankruptcy", "26B": "gambling", "26C": "taxes", "26D": "cardAbuse", "26E": "creditCounseling", "26F": "delinquencies"},
		},
	}
}

// LoadAliases reads alias overrides from YAML and merges them over the defaults.
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("failed to read alias table: %w", err)
	}

	var overrides Aliases
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Aliases{}, fmt.Errorf("failed to decode alias table: %w", err)
	}
	return DefaultAliases().Merge(overrides), nil
}

// Merge returns a copy of a with every entry of o applied on top.
func (a Aliases) Merge(o Aliases) Aliases {
	out := Aliases{
		Sections:    make(map[string]string, len(a.Sections)+len(o.Sections)),
		Subsections: make(map[string]map[string]string, len(a.Subsections)),
	}
	for k, v := range a.Sections {
		out.Sections[k] = v
	}
	for k, v := range o.Sections {
		out.Sections[k] = v
	}
	for _, src := range []map[string]map[string]string{a.Subsections, o.Subsections} {
		for sec, subs := range src {
			if out.Subsections[sec] == nil {
				out.Subsections[sec] = make(map[string]string, len(subs))
			}
			for k, v := range subs {
				out.Subsections[sec][k] = v
			}
		}
	}
	return out
}

// Section returns the path segment for a section id
func (a Aliases) Section(id string) string {
	if alias, ok := a.Sections[id]; ok && alias != "" {
		return alias
	}
	return id
}

// Subsection returns the path segment for a subsection, defaulting to the raw key
func (a Aliases) Subsection(section, sub string) string {
	if alias, ok := a.Subsections[section][sub]; ok && alias != "" {
		return alias
	}
	return sub
}
