package emit

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/pdfdesk/layout"
)

func sampleDocument() *Document {
	return &Document{
		Title: "Quarterly <Report>",
		Pages: []layout.Page{
			{
				Number: 1,
				Paragraphs: []layout.Paragraph{
					{Text: "Annual Report", Heading: layout.Heading1},
					{Text: "Revenue & Costs", Heading: layout.Heading2},
					{Text: "Income grew <fast> this year."},
				},
			},
			layout.PlaceholderPage(2),
		},
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryAliases(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		format string
		ext    string
	}{
		{"docx", "docx"},
		{"word", "docx"},
		{"WORD", "docx"},
		{"excel", "xlsx"},
		{"xlsx", "xlsx"},
		{"html", "html"},
		{"markdown", "md"},
		{"md", "md"},
		{"text", "txt"},
		{"txt", "txt"},
	}
	for _, tt := range tests {
		e, err := r.Get(tt.format)
		if err != nil {
			t.Errorf("Get(%q): %v", tt.format, err)
			continue
		}
		if e.Extension() != tt.ext {
			t.Errorf("Get(%q).Extension() = %q, want %q", tt.format, e.Extension(), tt.ext)
		}
	}

	if _, err := r.Get("pptx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRegistryFormatsSorted(t *testing.T) {
	got := NewRegistry().Formats()
	want := []string{"docx", "excel", "html", "markdown", "md", "text", "txt", "word", "xlsx"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("formats mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// DOCX
// ---------------------------------------------------------------------------

func TestDOCXPackage(t *testing.T) {
	e := &DOCX{Now: func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }}
	var buf bytes.Buffer
	if err := e.Emit(&buf, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		parts[f.Name] = string(data)
	}

	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/styles.xml", "docProps/core.xml"} {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing part %s", name)
		}
	}

	body := parts["word/document.xml"]
	for _, want := range []string{
		`<w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">Annual Report</w:t>`,
		`<w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t xml:space="preserve">Revenue &amp; Costs</w:t>`,
		`Income grew &lt;fast&gt; this year.`,
		`<w:br w:type="page"/>`,
		`<w:rPr><w:i/></w:rPr><w:t xml:space="preserve">` + layout.NoTextPlaceholder,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
	if n := strings.Count(body, `w:type="page"`); n != 1 {
		t.Errorf("expected 1 page break, got %d", n)
	}

	core := parts["docProps/core.xml"]
	if !strings.Contains(core, "Quarterly &lt;Report&gt;") {
		t.Errorf("core.xml title not escaped: %s", core)
	}
	if !strings.Contains(core, "2026-01-02T03:04:05Z") {
		t.Errorf("core.xml missing creation time: %s", core)
	}
}

func TestDOCXReproducible(t *testing.T) {
	e, err := NewRegistry().Get("word")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var first, second bytes.Buffer
	if err := e.Emit(&first, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if err := e.Emit(&second, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("same document emitted different bytes")
	}

	zr, err := zip.NewReader(bytes.NewReader(first.Bytes()), int64(first.Len()))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		core, _ := io.ReadAll(rc)
		rc.Close()
		if strings.Contains(string(core), "dcterms:created") {
			t.Errorf("core.xml should not carry a creation time: %s", core)
		}
	}
}

func TestDOCXEmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := (&DOCX{}).Emit(&buf, &Document{}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if _, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
}

// ---------------------------------------------------------------------------
// XLSX
// ---------------------------------------------------------------------------

func TestXLSXSheetsAndRows(t *testing.T) {
	var buf bytes.Buffer
	if err := (&XLSX{}).Emit(&buf, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"Page 1", "Page 2"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows("Page 1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{
		{"Page", "Kind", "Text"},
		{"1", "heading1", "Annual Report"},
		{"1", "heading2", "Revenue & Costs"},
		{"1", "paragraph", "Income grew <fast> this year."},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	rows, err = f.GetRows("Page 2")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "empty" || rows[1][2] != layout.NoTextPlaceholder {
		t.Errorf("placeholder sheet rows = %v", rows)
	}
}

func TestXLSXEmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := (&XLSX{}).Emit(&buf, &Document{}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 1 {
		t.Errorf("expected a single sheet, got %v", got)
	}
}

func TestTruncateCell(t *testing.T) {
	long := strings.Repeat("é", excelize.TotalCellChars+10)
	if got := len([]rune(truncateCell(long))); got != excelize.TotalCellChars {
		t.Errorf("truncated length = %d, want %d", got, excelize.TotalCellChars)
	}
	if got := truncateCell("short"); got != "short" {
		t.Errorf("truncateCell changed short text: %q", got)
	}
}

// ---------------------------------------------------------------------------
// HTML / Markdown / Text
// ---------------------------------------------------------------------------

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := (&HTML{}).Emit(&buf, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>Quarterly &lt;Report&gt;</title>",
		"<h1>Annual Report</h1>",
		"<h2>Revenue &amp; Costs</h2>",
		"<p>Income grew &lt;fast&gt; this year.</p>",
		"<p><em>" + layout.NoTextPlaceholder + "</em></p>",
		`<section data-page="2">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q\n%s", want, out)
		}
	}
	if n := strings.Count(out, "<hr>"); n != 1 {
		t.Errorf("expected 1 page separator, got %d", n)
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := (&Markdown{}).Emit(&buf, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Annual Report",
		"## Revenue",
		"Income grew",
		"No extractable text on this page",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "<h1>") || strings.Contains(out, "<p>") {
		t.Errorf("markdown still contains html tags:\n%s", out)
	}
	if strings.Index(out, "Annual Report") > strings.Index(out, "Income grew") {
		t.Error("markdown reordered paragraphs")
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := (&Text{}).Emit(&buf, sampleDocument()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	want := "Annual Report\n\nRevenue & Costs\n\nIncome grew <fast> this year.\n\f\n" + layout.NoTextPlaceholder + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}
