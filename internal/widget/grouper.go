package widget

// Groups holds logical fields in first-seen order with a name index.
type Groups struct {
	Fields []LogicalField
	index  map[string]int
}

// Group aggregates widgets sharing a field name into logical fields. The
// first widget seen for a name supplies page, type and label; later
// duplicates only append their id and rect.
func Group(widgets []Widget) *Groups {
	g := &Groups{index: make(map[string]int)}
	for _, w := range widgets {
		if i, ok := g.index[w.FieldName]; ok {
			f := &g.Fields[i]
			f.WidgetIDs = append(f.WidgetIDs, w.StableID)
			f.Rects = append(f.Rects, w.Rect)
			continue
		}
		g.index[w.FieldName] = len(g.Fields)
		g.Fields = append(g.Fields, LogicalField{
			FieldName:   w.FieldName,
			WidgetIDs:   []string{w.StableID},
			Rects:       []Rect{w.Rect},
			Page:        w.Page,
			RawTypeCode: w.RawTypeCode,
			RawLabel:    w.RawLabel,
		})
	}
	return g
}

// Get returns the logical field for a name
func (g *Groups) Get(fieldName string) (LogicalField, bool) {
	i, ok := g.index[fieldName]
	if !ok {
		return LogicalField{}, false
	}
	return g.Fields[i], true
}

// Len returns the number of logical fields
func (g *Groups) Len() int {
	return len(g.Fields)
}

// ByName returns the grouping as a map keyed by field name.
func (g *Groups) ByName() map[string]LogicalField {
	out := make(map[string]LogicalField, len(g.Fields))
	for _, f := range g.Fields {
		out[f.FieldName] = f
	}
	return out
}
