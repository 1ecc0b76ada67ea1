// Package extract reads positioned text out of PDF files. It is the glyph
// source for the layout package and also provides the cruder plain-text
// fallback used when positioned extraction fails.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/brunobiangulo/pdfdesk/layout"
)

var (
	// ErrEncrypted is returned when a document needs a password and none was given.
	ErrEncrypted = errors.New("extract: document is encrypted")

	// ErrInvalidPassword is returned when the supplied password does not open the document.
	ErrInvalidPassword = errors.New("extract: invalid password")

	// ErrNoPages is returned for documents without any page.
	ErrNoPages = errors.New("extract: document has no pages")

	// ErrPageRange is returned for page numbers outside 1..NumPages.
	ErrPageRange = errors.New("extract: page out of range")
)

// Document is an opened PDF. It is not safe for concurrent use; open one
// Document per goroutine from the same bytes instead.
type Document struct {
	reader *pdf.Reader
	pages  int
}

// Open parses data as a PDF. A non-empty password is tried against
// encrypted documents.
func Open(data []byte, password string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("opening PDF: malformed document: %v", r)
		}
	}()

	ra := bytes.NewReader(data)
	var reader *pdf.Reader
	if password != "" {
		reader, err = pdf.NewReaderEncrypted(ra, int64(len(data)), passwordOnce(password))
	} else {
		reader, err = pdf.NewReader(ra, int64(len(data)))
	}
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			if password == "" {
				return nil, ErrEncrypted
			}
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return nil, ErrNoPages
	}
	return &Document{reader: reader, pages: pages}, nil
}

// passwordOnce yields the password on the first call and "" afterwards,
// which tells the reader to stop retrying.
func passwordOnce(password string) func() string {
	used := false
	return func() string {
		if used {
			return ""
		}
		used = true
		return password
	}
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return d.pages
}

// Fragments returns the positioned text runs of page n (1-based). Blank
// runs are skipped; text is NFKC-normalised so ligature glyphs come out as
// separate letters.
func (d *Document) Fragments(n int) (frags []layout.Fragment, err error) {
	page, err := d.page(n)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("page %d: reading content: %v", n, r)
		}
	}()

	return toFragments(page.Content().Text), nil
}

// PlainText returns the library's unpositioned text for page n.
func (d *Document) PlainText(n int) (text string, err error) {
	page, err := d.page(n)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: reading plain text: %v", n, r)
		}
	}()

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	return text, nil
}

func (d *Document) page(n int) (pdf.Page, error) {
	if n < 1 || n > d.pages {
		return pdf.Page{}, fmt.Errorf("page %d of %d: %w", n, d.pages, ErrPageRange)
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return pdf.Page{}, fmt.Errorf("page %d: missing page object", n)
	}
	return page, nil
}

// toFragments maps library text runs to layout fragments. The library does
// not report glyph height, so Height mirrors FontSize.
func toFragments(texts []pdf.Text) []layout.Fragment {
	frags := make([]layout.Fragment, 0, len(texts))
	for _, t := range texts {
		s := norm.NFKC.String(t.S)
		if strings.TrimSpace(s) == "" {
			continue
		}
		frags = append(frags, layout.Fragment{
			Text:     s,
			X:        t.X,
			Y:        t.Y,
			Width:    t.W,
			Height:   t.FontSize,
			FontSize: t.FontSize,
		})
	}
	return frags
}
