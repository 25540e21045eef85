// Package schema validates the external configuration artifacts (option
// metadata, page-range tables, structural indices) against CUE definitions
// before they are decoded into engine types.
package schema

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/goccy/go-yaml"

	"github.com/a3tai/formkey/internal/formerr"
)

const definitions = `
#Option: {
	selectionValue: string & !=""
	internalState?: string
	uiLabel?:       string
	label?:         string
}

#FieldKindMetadata: {
	options: [...#Option]
}

#Metadata: [string]: #FieldKindMetadata

#PageRanges: close({[=~"^[0-9]+$"]: [int & >=1, int & >=1]})

#Entry: {
	fieldIds: [...string]
	...
}

#Subsection: {
	fieldIds?: [...string]
	entries?: close({[=~"^[0-9]+$"]: #Entry})
	...
}

#Section: {
	fieldIds?: [...string]
	subsections?: [string]: #Subsection
	...
}

#Index: [string]: #Section
`

// Artifact names one of the validated document kinds
type Artifact string

const (
	Metadata   Artifact = "#Metadata"
	PageRanges Artifact = "#PageRanges"
	Index      Artifact = "#Index"
)

// wrapperKey is the optional top-level key each artifact may be nested under.
var wrapperKey = map[Artifact]string{
	Metadata:   "fields",
	PageRanges: "sections",
	Index:      "sections",
}

// Validator checks artifacts against the compiled definitions. A cue.Context
// is not safe for concurrent use, so calls are serialized.
type Validator struct {
	ctx   *cue.Context
	defs  cue.Value
	mutex sync.Mutex
}

// New compiles the artifact definitions
func New() (*Validator, error) {
	ctx := cuecontext.New()
	defs := ctx.CompileString(definitions)
	if err := defs.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile artifact schema: %w", err)
	}
	return &Validator{ctx: ctx, defs: defs}, nil
}

// Validate decodes data (YAML or JSON) and checks it against the artifact's
// definition. Violations are returned as an InvalidArtifact error listing
// every failing path.
func (v *Validator) Validate(kind Artifact, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return formerr.Wrap(formerr.ErrorTypeInvalidArtifact, string(kind), err)
	}
	if m, ok := doc.(map[string]any); ok {
		if inner, ok := m[wrapperKey[kind]]; ok {
			doc = inner
		}
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	def := v.defs.LookupPath(cue.ParsePath(string(kind)))
	if !def.Exists() {
		return fmt.Errorf("unknown artifact definition %s", kind)
	}
	value := v.ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return formerr.Wrap(formerr.ErrorTypeInvalidArtifact, string(kind), err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &formerr.Error{
			Type:    formerr.ErrorTypeInvalidArtifact,
			Field:   string(kind),
			Message: cueerrors.Details(err, nil),
			Err:     err,
		}
	}
	return nil
}
