package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formkey/internal/widget"
)

func TestMemory(t *testing.T) {
	doc := NewMemory(
		MemoryField{Name: "name", Kind: widget.KindText},
		MemoryField{Name: "agree", Kind: widget.KindCheckbox},
		MemoryField{Name: "sex", Kind: widget.KindSelection, Options: []string{"Male", "Female"}, States: []string{"0", "1"}},
		MemoryField{Name: "sig", Kind: widget.KindUnknown, ReadOnly: true},
	).WithShadowLayer()

	var _ Document = doc

	require.NoError(t, doc.SetText("name", "Jane"))
	v, err := doc.Value("name")
	require.NoError(t, err)
	assert.Equal(t, "Jane", v)

	require.NoError(t, doc.SetChecked("agree", true))
	checked, err := doc.Checked("agree")
	require.NoError(t, err)
	assert.True(t, checked)

	assert.True(t, errors.Is(doc.Select("sex", "0"), ErrInvalidOption))
	require.NoError(t, doc.Select("sex", "Female"))

	assert.True(t, errors.Is(doc.SetText("agree", "x"), ErrUnsupported))
	assert.True(t, errors.Is(doc.SetText("sig", "x"), ErrUnsupported))
	assert.True(t, errors.Is(doc.SetText("missing", "x"), ErrFieldAbsent))
	assert.False(t, doc.HasField("missing"))

	assert.Equal(t, []string{"agree", "name", "sex"}, doc.Stale())
	require.NoError(t, doc.RefreshAppearances([]string{"agree", "name", "sex"}))
	assert.Empty(t, doc.Stale())
	assert.Equal(t, 1, doc.Refreshes())

	had, err := doc.RemoveShadowLayer()
	require.NoError(t, err)
	assert.True(t, had)
	assert.False(t, doc.HasShadowLayer())

	had, _ = doc.RemoveShadowLayer()
	assert.False(t, had)
}
