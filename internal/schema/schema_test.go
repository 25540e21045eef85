package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formkey/internal/formerr"
)

func TestValidate(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		kind    Artifact
		doc     string
		wantErr bool
	}{
		{
			name: "metadata wrapped",
			kind: Metadata,
			doc: `
fields:
  form1[0].Radio[0]:
    options:
      - selectionValue: "YES"
        internalState: "0"
`,
		},
		{
			name: "metadata bare json",
			kind: Metadata,
			doc:  `{"f": {"options": [{"selectionValue": "A", "uiLabel": "a"}]}}`,
		},
		{
			name:    "metadata empty selection value",
			kind:    Metadata,
			doc:     `{"f": {"options": [{"selectionValue": ""}]}}`,
			wantErr: true,
		},
		{
			name:    "metadata misspelled key",
			kind:    Metadata,
			doc:     `{"f": {"options": [{"selectionValue": "A", "uilabel": "a"}]}}`,
			wantErr: true,
		},
		{
			name: "page ranges",
			kind: PageRanges,
			doc:  "sections:\n  \"13\": [17, 24]\n",
		},
		{
			name:    "page range arity",
			kind:    PageRanges,
			doc:     `{"13": [17]}`,
			wantErr: true,
		},
		{
			name:    "page range non-numeric section",
			kind:    PageRanges,
			doc:     `{"thirteen": [17, 24]}`,
			wantErr: true,
		},
		{
			name:    "page range alphanumeric section",
			kind:    PageRanges,
			doc:     "sections:\n  \"13\": [17, 24]\n  \"13a\": [25, 26]\n",
			wantErr: true,
		},
		{
			name: "page ranges bare",
			kind: PageRanges,
			doc:  `{"1": [5, 5], "13": [17, 24]}`,
		},
		{
			name: "index with extra keys",
			kind: Index,
			doc:  `{"version": "x", "sections": {"13": {"pages": [17], "subsections": {"13A.1": {"entries": {"1": {"fieldIds": ["a"]}}}}}}}`,
		},
		{
			name:    "index non-numeric entry",
			kind:    Index,
			doc:     `{"13": {"subsections": {"13A.1": {"entries": {"first": {"fieldIds": ["a"]}}}}}}`,
			wantErr: true,
		},
		{
			name:    "not yaml",
			kind:    Metadata,
			doc:     "a: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.kind, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, formerr.Is(err, formerr.ErrorTypeInvalidArtifact))
		})
	}
}
