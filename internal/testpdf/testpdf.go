// Package testpdf builds small, valid PDF files for tests. Text is set in
// Helvetica with a fixed-width metrics table (space 250, every other
// printable character 500) so positions are easy to predict.
package testpdf

import (
	"bytes"
	"fmt"
	"strings"
)

// Text places one string on a page with its baseline at (X, Y).
type Text struct {
	S    string
	X, Y float64
	Size float64
}

// Page is the list of strings drawn on one page. An empty Page is a page
// without any text.
type Page []Text

// Build returns a PDF with one 612x792 page per element of pages.
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{nil}
	}

	var objects []string

	// 1: catalog, 2: page tree, 3: font; page i uses 4+2i and its content 5+2i.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fontObject(),
	)

	for i, page := range pages {
		content := contentStream(page)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func fontObject() string {
	widths := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		if c == ' ' {
			widths = append(widths, "250")
		} else {
			widths = append(widths, "500")
		}
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func contentStream(page Page) string {
	var sb strings.Builder
	for _, t := range page {
		fmt.Fprintf(&sb, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n",
			num(t.Size), num(t.X), num(t.Y), escape(t.S))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Report is a two-page fixture: page 1 carries a title and one paragraph
// spread over two lines, page 2 is blank.
func Report() []byte {
	return Build(
		Page{
			{S: "Annual Report", X: 72, Y: 700, Size: 24},
			{S: "Hello World", X: 72, Y: 650, Size: 12},
			{S: "second line here", X: 72, Y: 636, Size: 12},
		},
		nil,
	)
}
