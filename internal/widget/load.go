package widget

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// extractionFile is the envelope written by extraction passes; a bare JSON
// array of widgets is accepted as well.
type extractionFile struct {
	Widgets []Widget `json:"widgets"`
}

// LoadFile reads a raw widget extraction from a JSON file
func LoadFile(path string) ([]Widget, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open widget extraction: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load reads a raw widget extraction and validates every widget
func Load(r io.Reader) ([]Widget, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read widget extraction: %w", err)
	}

	var widgets []Widget
	if err := json.Unmarshal(data, &widgets); err != nil {
		var env extractionFile
		if envErr := json.Unmarshal(data, &env); envErr != nil {
			return nil, fmt.Errorf("failed to decode widget extraction: %w", envErr)
		}
		widgets = env.Widgets
	}

	for i, w := range widgets {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("widget %d: %w", i, err)
		}
	}
	return widgets, nil
}

// WriteFile stores widgets in the envelope format
func WriteFile(path string, widgets []Widget) error {
	data, err := json.MarshalIndent(extractionFile{Widgets: widgets}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode widgets: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write widgets: %w", err)
	}
	return nil
}
