package writeback

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/a3tai/formkey/internal/inventory"
)

// Option is one selectable value of a selection or dropdown field.
//
// SelectionValue is what the field is set to. InternalState is the
// per-widget appearance state of the radio kid that shows this option; it
// only identifies the physical widget and is never a selection value.
type Option struct {
	SelectionValue string `json:"selectionValue" yaml:"selectionValue"`
	InternalState  string `json:"internalState,omitempty" yaml:"internalState,omitempty"`
	UILabel        string `json:"uiLabel,omitempty" yaml:"uiLabel,omitempty"`
	Label          string `json:"label,omitempty" yaml:"label,omitempty"`
}

// FieldKindMetadata describes the valid options of one field
type FieldKindMetadata struct {
	Options []Option `json:"options" yaml:"options"`
}

// Metadata is keyed by field name, fingerprint or uiPath.
type Metadata map[string]FieldKindMetadata

type metadataFile struct {
	Fields Metadata `yaml:"fields"`
}

// LoadMetadata reads option metadata from YAML or JSON. Both
// {"fields": {...}} and a bare field map are accepted.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field metadata: %w", err)
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes option metadata
func ParseMetadata(data []byte) (Metadata, error) {
	var md Metadata
	var file metadataFile
	if err := yaml.Unmarshal(data, &file); err == nil && file.Fields != nil {
		md = file.Fields
	} else if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to decode field metadata: %w", err)
	}

	for name, m := range md {
		for i, o := range m.Options {
			if o.SelectionValue == "" {
				return nil, fmt.Errorf("field %s option %d has no selectionValue", name, i)
			}
		}
	}
	return md, nil
}

// For returns the metadata for a record, trying fingerprint, uiPath and
// field name in that order.
func (m Metadata) For(rec *inventory.FieldRecord) (FieldKindMetadata, bool) {
	for _, key := range []string{rec.Fingerprint, rec.UIPath, rec.FieldName} {
		if key == "" {
			continue
		}
		if md, ok := m[key]; ok {
			return md, true
		}
	}
	return FieldKindMetadata{}, false
}
