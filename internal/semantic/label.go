package semantic

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// LabelSource tags how a trailing path segment was derived.
type LabelSource string

const (
	LabelSourceLabel     LabelSource = "label"
	LabelSourceLookup    LabelSource = "lookup"
	LabelSourceFieldName LabelSource = "field-name"
)

// Segment is a derived trailing field-name segment.
type Segment struct {
	Name   string      `json:"name"`
	Source LabelSource `json:"source"`
}

// MaxLabelWords is the longest label camel-cased verbatim; longer labels are
// treated as prose and matched against the lookup table first.
const MaxLabelWords = 5

var (
	sectionHeaderRe = regexp.MustCompile(`(?i)^\s*sections?\s+\d{1,2}[A-Z]?(?:\.\d+)?(?:\s*-\s*\d{1,2})?\s*[-:.–—]?\s*`)
	subsectionRe    = regexp.MustCompile(`^\s*\d{1,2}[A-Z](?:\.\d+)?\.?\s+`)
	entryMarkerRe   = regexp.MustCompile(`(?i)\bentry\s*#?\s*\d+\b[.:]?`)
	possessiveRe    = regexp.MustCompile(`['’]s\b`)
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	nonWordRe       = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	indexSuffixRe   = regexp.MustCompile(`\[\d+\]$`)
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "your": true, "you": true,
	"if": true, "or": true, "and": true, "to": true, "for": true, "in": true,
	"on": true, "is": true, "are": true, "this": true, "that": true, "with": true,
	"please": true, "provide": true, "enter": true, "list": true, "select": true,
	"check": true, "applicable": true, "following": true, "complete": true,
}

// lookupEntry maps a phrase found in verbose label text onto a field name.
type lookupEntry struct {
	pattern *regexp.Regexp
	name    string
}

// DefaultLabelLookup is the common-label table consulted for verbose labels.
// Order matters: more specific phrases come first.
var DefaultLabelLookup = []lookupEntry{
	{regexp.MustCompile(`(?i)supervisor'?s?\s+name|name\s+of\s+(?:your\s+)?supervisor`), "supervisorName"},
	{regexp.MustCompile(`(?i)first\s+name`), "firstName"},
	{regexp.MustCompile(`(?i)middle\s+name`), "middleName"},
	{regexp.MustCompile(`(?i)last\s+name`), "lastName"},
	{regexp.MustCompile(`(?i)\bsuffix\b`), "suffix"},
	{regexp.MustCompile(`(?i)date\s+of\s+birth`), "dateOfBirth"},
	{regexp.MustCompile(`(?i)place\s+of\s+birth`), "placeOfBirth"},
	{regexp.MustCompile(`(?i)social\s+security`), "ssn"},
	{regexp.MustCompile(`(?i)\bfrom\b.*\bdate\b|\bfrom\s*\(month`), "fromDate"},
	{regexp.MustCompile(`(?i)\bto\b.*\bdate\b|\bto\s*\(month`), "toDate"},
	{regexp.MustCompile(`(?i)zip\s*code|postal\s+code`), "zipCode"},
	{regexp.MustCompile(`(?i)street`), "street"},
	{regexp.MustCompile(`(?i)\bcity\b`), "city"},
	{regexp.MustCompile(`(?i)\bstate\b`), "state"},
	{regexp.MustCompile(`(?i)\bcountry\b`), "country"},
	{regexp.MustCompile(`(?i)e-?mail`), "email"},
	{regexp.MustCompile(`(?i)tele?phone|\bphone\b`), "phone"},
	{regexp.MustCompile(`(?i)\bestimated?\b`), "estimated"},
	{regexp.MustCompile(`(?i)\bpresent\b`), "present"},
	{regexp.MustCompile(`(?i)\baddress\b`), "address"},
	{regexp.MustCompile(`(?i)\bname\b`), "name"},
	{regexp.MustCompile(`(?i)\bdate\b`), "date"},
}

// LabelNormalizer derives trailing path segments from raw widget labels.
type LabelNormalizer struct {
	cache  *LabelCache
	lookup []lookupEntry
	title  cases.Caser
}

// NewLabelNormalizer creates a normalizer; cache may be nil to disable memoization.
func NewLabelNormalizer(cache *LabelCache) *LabelNormalizer {
	return &LabelNormalizer{
		cache:  cache,
		lookup: DefaultLabelLookup,
		title:  cases.Title(language.English),
	}
}

// Segment derives the trailing field-name segment for a label, falling back
// to the field name itself when the label yields nothing.
func (n *LabelNormalizer) Segment(label, fieldName string) Segment {
	key := label + "\x00" + fieldName
	if n.cache != nil {
		if seg, ok := n.cache.Get(key); ok {
			return seg
		}
	}

	seg := n.derive(label, fieldName)
	if n.cache != nil {
		n.cache.Put(key, seg)
	}
	return seg
}

func (n *LabelNormalizer) derive(label, fieldName string) Segment {
	words := significantWords(StripBoilerplate(label))

	if len(words) > 0 && len(words) <= MaxLabelWords {
		return Segment{Name: n.camel(words), Source: LabelSourceLabel}
	}
	if len(words) > MaxLabelWords {
		for _, e := range n.lookup {
			if e.pattern.MatchString(label) {
				return Segment{Name: e.name, Source: LabelSourceLookup}
			}
		}
		return Segment{Name: n.camel(words[:MaxLabelWords]), Source: LabelSourceLabel}
	}

	return Segment{Name: n.fromFieldName(fieldName), Source: LabelSourceFieldName}
}

// fromFieldName turns "form1[0].Section13_1[0].TextField11[0]" into "textField11".
func (n *LabelNormalizer) fromFieldName(fieldName string) string {
	last := fieldName
	if i := strings.LastIndex(fieldName, "."); i >= 0 {
		last = fieldName[i+1:]
	}
	last = indexSuffixRe.ReplaceAllString(last, "")
	words := strings.Fields(nonWordRe.ReplaceAllString(last, " "))
	if len(words) == 0 {
		return "field"
	}
	// Keep the original inner casing of identifiers like TextField11.
	out := lowerFirst(words[0])
	for _, w := range words[1:] {
		out += upperFirst(w)
	}
	return ensureIdentifier(out)
}

func (n *LabelNormalizer) camel(words []string) string {
	var b strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(n.title.String(w))
	}
	return ensureIdentifier(b.String())
}

// StripBoilerplate removes section-header prose, entry markers and
// parentheticals, and keeps only the first sentence of the label.
func StripBoilerplate(label string) string {
	s := norm.NFKC.String(label)
	s = strings.Join(strings.Fields(s), " ")

	for {
		stripped := sectionHeaderRe.ReplaceAllString(s, "")
		stripped = subsectionRe.ReplaceAllString(stripped, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = entryMarkerRe.ReplaceAllString(s, " ")
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = strings.TrimLeft(strings.Join(strings.Fields(s), " "), " .:-")
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func significantWords(s string) []string {
	var out []string
	s = possessiveRe.ReplaceAllString(s, "")
	for _, w := range strings.Fields(nonWordRe.ReplaceAllString(s, " ")) {
		if stopWords[strings.ToLower(w)] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func ensureIdentifier(s string) string {
	if s == "" {
		return "field"
	}
	if unicode.IsDigit([]rune(s)[0]) {
		return "field" + s
	}
	return s
}

func lowerFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func upperFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
