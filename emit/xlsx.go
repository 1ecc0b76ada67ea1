package emit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/pdfdesk/layout"
)

// XLSX writes one worksheet per source page with one row per paragraph.
type XLSX struct{}

func (e *XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSX) Extension() string { return "xlsx" }

var xlsxHeader = []any{"Page", "Kind", "Text"}

func (e *XLSX) Emit(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating heading style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("creating body style: %w", err)
	}

	// A workbook always has at least one sheet; the default one is renamed
	// for the first page, or kept with just a header when there are none.
	const defaultSheet = "Sheet1"
	if len(doc.Pages) == 0 {
		if err := fillXLSXSheet(f, defaultSheet, 0, nil, bold, wrap); err != nil {
			return err
		}
	}

	for i, page := range doc.Pages {
		name := sheetName(page.Number)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", name, err)
		}
		if err := fillXLSXSheet(f, name, page.Number, page.Paragraphs, bold, wrap); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}

func fillXLSXSheet(f *excelize.File, sheet string, number int, paras []layout.Paragraph, bold, wrap int) error {
	if err := f.SetSheetRow(sheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(sheet, "C", "C", 100); err != nil {
		return fmt.Errorf("sizing text column: %w", err)
	}

	for i, p := range paras {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{number, paragraphKind(p), truncateCell(p.Text)}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d of %s: %w", row, sheet, err)
		}

		style := wrap
		if p.IsHeading() {
			style = bold
		}
		last, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(sheet, cell, last, style); err != nil {
			return fmt.Errorf("styling row %d of %s: %w", row, sheet, err)
		}
	}
	return nil
}

func sheetName(page int) string {
	return fmt.Sprintf("Page %d", page)
}

// paragraphKind labels a paragraph for the Kind column.
func paragraphKind(p layout.Paragraph) string {
	switch {
	case p.Placeholder:
		return "empty"
	case p.IsHeading():
		return p.Heading.String()
	default:
		return "paragraph"
	}
}

// truncateCell keeps text within the per-cell character limit.
func truncateCell(s string) string {
	r := []rune(s)
	if len(r) <= excelize.TotalCellChars {
		return s
	}
	return string(r[:excelize.TotalCellChars])
}
