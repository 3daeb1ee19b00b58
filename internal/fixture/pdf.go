package fixture

import (
	"bytes"
	"fmt"
	"strings"
)

// MinimalPDF builds a small, well-formed PDF with the given number of empty A4
// pages. The cross-reference table is computed, so pdf parsers accept it.
func MinimalPDF(pages int) []byte {
	return MinimalPDFWithText(pages, "")
}

// MinimalPDFWithText is MinimalPDF with marker embedded as a comment, so tests
// can tell documents apart.
func MinimalPDFWithText(pages int, marker string) []byte {
	if pages < 1 {
		pages = 1
	}
	var buf bytes.Buffer
	var offsets []int
	buf.WriteString("%PDF-1.4\n")
	if marker != "" {
		fmt.Fprintf(&buf, "%% %s\n", strings.ReplaceAll(marker, "\n", " "))
	}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
