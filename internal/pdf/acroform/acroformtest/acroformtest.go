// Package acroformtest builds a small fillable PDF for tests: one page with
// a text field, a checkbox, a two-option radio group and an XFA stream.
package acroformtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Field names of the generated form
const (
	TextField = "applicant"
	Checkbox  = "agree"
	Radio     = "citizen"
)

// RadioOptions are the /Opt export values of Radio. The widget of option i
// uses the appearance state named after i, so export values and state names
// never coincide.
var RadioOptions = []string{"YES", "NO"}

const appearance = "q Q"

const xfa = `<xdp:xdp xmlns:xdp="http://ns.adobe.com/xdp/"></xdp:xdp>`

// Bytes returns the PDF with a correct cross-reference table
func Bytes() []byte {
	objects := []string{
		`<< /Type /Catalog /Pages 2 0 R /AcroForm 4 0 R >>`,
		`<< /Type /Pages /Kids [3 0 R] /Count 1 >>`,
		`<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [5 0 R 6 0 R 8 0 R 9 0 R] >>`,
		`<< /Fields [5 0 R 6 0 R 7 0 R] /XFA 11 0 R >>`,
		fmt.Sprintf(`<< /Type /Annot /Subtype /Widget /FT /Tx /T (%s) /TU (Applicant name) /Rect [50 700 250 720] /P 3 0 R /AP << /N 10 0 R >> >>`, TextField),
		fmt.Sprintf(`<< /Type /Annot /Subtype /Widget /FT /Btn /T (%s) /Rect [50 660 62 672] /P 3 0 R /V /Off /AS /Off /AP << /N << /On 10 0 R /Off 10 0 R >> >> >>`, Checkbox),
		fmt.Sprintf(`<< /FT /Btn /Ff 32768 /T (%s) /Opt [(%s) (%s)] /V /Off /Kids [8 0 R 9 0 R] >>`, Radio, RadioOptions[0], RadioOptions[1]),
		`<< /Type /Annot /Subtype /Widget /Parent 7 0 R /Rect [50 620 62 632] /P 3 0 R /AS /Off /AP << /N << /0 10 0 R /Off 10 0 R >> >> >>`,
		`<< /Type /Annot /Subtype /Widget /Parent 7 0 R /Rect [80 620 92 632] /P 3 0 R /AS /Off /AP << /N << /1 10 0 R /Off 10 0 R >> >> >>`,
		stream(appearance),
		stream(xfa),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n", len(objects)+1, xref)
	buf.WriteString("%%EOF\n")
	return buf.Bytes()
}

// Write stores the PDF as name in dir and returns its path
func Write(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test form: %v", err)
	}
	return path
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}
