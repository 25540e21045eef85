package formerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      string
	}{
		{ErrorTypeMissingStructuralMapping, "MISSING_STRUCTURAL_MAPPING"},
		{ErrorTypeSectionPageMismatch, "SECTION_PAGE_MISMATCH"},
		{ErrorTypeUnknownFieldKind, "UNKNOWN_FIELD_KIND"},
		{ErrorTypeInvalidSelectionValue, "INVALID_SELECTION_VALUE"},
		{ErrorTypeTargetFieldAbsent, "TARGET_FIELD_ABSENT"},
		{ErrorTypeDocumentLoad, "DOCUMENT_LOAD"},
		{ErrorType(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.errorType.String())
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, ErrorTypeTargetFieldAbsent.IsRecoverable())
	assert.True(t, ErrorTypeInvalidSelectionValue.IsRecoverable())
	assert.False(t, ErrorTypeDocumentLoad.IsRecoverable())
	assert.False(t, ErrorTypeInvalidArtifact.IsRecoverable())
}

func TestErrorWrappingAndInspection(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("applying field: %w", Wrap(ErrorTypeMutationFailed, "form1[0].Text[0]", cause))

	assert.True(t, Is(err, ErrorTypeMutationFailed))
	assert.False(t, Is(err, ErrorTypeTargetFieldAbsent))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "MUTATION_FAILED")
	assert.Contains(t, err.Error(), "form1[0].Text[0]")

	assert.Nil(t, Wrap(ErrorTypeMutationFailed, "x", nil))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(cause))
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeInvalidSelectionValue, "radio", "value %q not offered", "MAYBE")
	assert.Equal(t, `[INVALID_SELECTION_VALUE] radio: value "MAYBE" not offered`, err.Error())
}

func TestErrorTypeJSONNames(t *testing.T) {
	type row struct {
		Type ErrorType `json:"type"`
	}
	data, err := json.Marshal(row{Type: ErrorTypeSectionPageMismatch})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"SECTION_PAGE_MISMATCH"}`, string(data))

	var back row
	assert.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ErrorTypeSectionPageMismatch, back.Type)

	assert.NoError(t, json.Unmarshal([]byte(`{"type":"NOT_A_TYPE"}`), &back))
	assert.Equal(t, ErrorTypeUnknown, back.Type)
}
