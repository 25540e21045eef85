package writeback

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/a3tai/formkey/internal/inventory"
)

// ValueStore maps field identifiers to raw values (string, bool, number or nil).
type ValueStore map[string]any

// LoadValues reads a value store from a JSON object
func LoadValues(path string) (ValueStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}
	var values ValueStore
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}
	return values, nil
}

// SaveValues writes a value store as indented JSON
func SaveValues(path string, values ValueStore) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write values: %w", err)
	}
	return nil
}

// KeyMode selects how value-store keys address inventory records. One call
// uses one mode for every key.
type KeyMode string

const (
	KeyFingerprint KeyMode = "fingerprint"
	KeyUIPath      KeyMode = "uiPath"
)

// ParseKeyMode parses a key mode name; empty selects KeyUIPath.
func ParseKeyMode(s string) (KeyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uipath", "ui-path", "path":
		return KeyUIPath, nil
	case "fingerprint", "fp":
		return KeyFingerprint, nil
	default:
		return "", fmt.Errorf("unknown key mode %q (expected fingerprint or uiPath)", s)
	}
}

// KeyOf returns the value-store key of a record under mode
func KeyOf(rec *inventory.FieldRecord, mode KeyMode) string {
	if mode == KeyFingerprint {
		return rec.Fingerprint
	}
	return rec.UIPath
}

// Clear deletes the values of the given fingerprints from the store, e.g.
// after an entry was removed.
func (s ValueStore) Clear(inv *inventory.Inventory, fingerprints []string, mode KeyMode) int {
	cleared := 0
	for _, fp := range fingerprints {
		rec, ok := inv.Records[fp]
		if !ok {
			continue
		}
		key := KeyOf(rec, mode)
		if _, ok := s[key]; ok {
			delete(s, key)
			cleared++
		}
	}
	return cleared
}

var truthy = map[string]bool{
	"true":    true,
	"1":       true,
	"yes":     true,
	"y":       true,
	"checked": true,
}

// isTruthy coerces a checkbox value through the truthy allow-list.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(t))]
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 1
	case float64:
		return t == 1
	case float32:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	default:
		return false
	}
}

// textOf coerces a value for a text field
func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// selectionOf coerces a value into a selection candidate. Booleans become
// YES/NO, the spelling the target form uses for yes/no groups.
func selectionOf(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "YES"
		}
		return "NO"
	}
	return strings.TrimSpace(textOf(v))
}
