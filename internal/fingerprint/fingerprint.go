// Package fingerprint computes the deterministic identity of a logical field
// from its representative widget's page, geometry and name.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/a3tai/formkey/internal/widget"
)

// Length is the number of hex digits in a fingerprint.
const Length = 16

// Compute returns the 16-hex-digit fingerprint of (page, rect, fieldName).
// The rect is rounded to 2 decimals first so float noise from repeated
// extraction runs does not change the result.
func Compute(page int, rect widget.Rect, fieldName string) string {
	r := rect.Rounded()

	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(strconv.Itoa(page))
	b.WriteString("|r=")
	b.WriteString(formatCoord(r.X))
	b.WriteByte(',')
	b.WriteString(formatCoord(r.Y))
	b.WriteByte(',')
	b.WriteString(formatCoord(r.Width))
	b.WriteByte(',')
	b.WriteString(formatCoord(r.Height))
	b.WriteString("|n=")
	b.WriteString(fieldName)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:Length]
}

// ForField fingerprints a logical field by its representative widget.
func ForField(f widget.LogicalField) string {
	_, page, rect := f.Representative()
	return Compute(page, rect, f.FieldName)
}

// Valid reports whether s has the shape of a fingerprint.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// formatCoord prints a coordinate with exactly 2 decimals; -0 prints as 0.
func formatCoord(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
