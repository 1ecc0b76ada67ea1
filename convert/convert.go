// Package convert drives page-level text reconstruction for a whole PDF.
// Pages are independent: they are extracted and assembled concurrently and
// reassembled in source order.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/brunobiangulo/pdfdesk/extract"
	"github.com/brunobiangulo/pdfdesk/layout"
)

// defaultConcurrency is the number of pages processed in parallel when
// Config.Concurrency is unset.
const defaultConcurrency = 4

// Config configures a Converter.
type Config struct {
	// Concurrency caps the number of pages processed at once.
	Concurrency int

	// Layout holds the reconstruction thresholds.
	Layout layout.Config
}

// Options configures one conversion.
type Options struct {
	// Password opens encrypted documents.
	Password string

	// DetectHeadings enables heading classification.
	DetectHeadings bool

	// Pages restricts the conversion to these 1-based page numbers. Empty
	// means every page. Duplicates are ignored; output follows page order.
	Pages []int
}

// Result is the reconstructed text of a document.
type Result struct {
	// Pages holds one entry per converted page, in page order.
	Pages []layout.Page

	// Modes holds the extraction mode of each entry in Pages.
	Modes []extract.Mode

	// Mode summarises Modes for the whole document.
	Mode extract.Mode

	// PageCount is the number of pages in the source document.
	PageCount int

	Elapsed time.Duration
}

// Converter turns PDF bytes into assembled pages. It is safe for
// concurrent use.
type Converter struct {
	concurrency int
	analyzer    *layout.Analyzer
}

// New creates a Converter.
func New(cfg Config) *Converter {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Converter{
		concurrency: cfg.Concurrency,
		analyzer:    layout.NewAnalyzer(cfg.Layout),
	}
}

// Convert extracts and assembles every requested page of data. Cancellation
// is observed between pages; a page already in progress runs to completion.
func (c *Converter) Convert(ctx context.Context, data []byte, opts Options) (*Result, error) {
	start := time.Now()

	doc, err := extract.Open(data, opts.Password)
	if err != nil {
		return nil, err
	}

	numbers, err := selectPages(opts.Pages, doc.NumPages())
	if err != nil {
		return nil, err
	}

	pages := make([]layout.Page, len(numbers))
	modes := make([]extract.Mode, len(numbers))

	workers := c.concurrency
	if workers > len(numbers) {
		workers = len(numbers)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(first bool) {
			defer wg.Done()

			// The reader is not safe for concurrent use; every worker but
			// the first opens its own. The first worker always exists, so a
			// helper that fails to open just leaves its share to the others.
			wdoc := doc
			if !first {
				var err error
				wdoc, err = extract.Open(data, opts.Password)
				if err != nil {
					slog.Warn("convert: worker could not open document", "error", err)
					return
				}
			}

			for idx := range jobs {
				pages[idx], modes[idx] = c.convertPage(wdoc, numbers[idx], opts.DetectHeadings)
			}
		}(w == 0)
	}

	var cancelled error
	for idx := range numbers {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case jobs <- idx:
		case <-ctx.Done():
			cancelled = ctx.Err()
		}
		if cancelled != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	res := &Result{
		Pages:     pages,
		Modes:     modes,
		Mode:      extract.Combine(modes),
		PageCount: doc.NumPages(),
		Elapsed:   time.Since(start),
	}

	slog.Info("convert: document processed",
		"pages", len(pages),
		"page_count", res.PageCount,
		"mode", res.Mode,
		"workers", workers,
		"elapsed", res.Elapsed.Round(time.Millisecond))

	return res, nil
}

// convertPage runs positioned extraction for page n, falling back to the
// plain-text split when the content stream cannot be read.
func (c *Converter) convertPage(doc *extract.Document, n int, detectHeadings bool) (layout.Page, extract.Mode) {
	frags, err := doc.Fragments(n)
	if err == nil {
		page := c.analyzer.AnalyzePage(n, frags, detectHeadings)
		if page.IsPlaceholder() {
			return page, extract.ModeNone
		}
		return page, extract.ModeLayout
	}

	slog.Warn("convert: positioned extraction failed, using plain text", "page", n, "error", err)

	text, perr := doc.PlainText(n)
	if perr != nil {
		slog.Warn("convert: plain text extraction failed", "page", n, "error", perr)
		return layout.PlaceholderPage(n), extract.ModeNone
	}

	paragraphs := extract.PlainParagraphs(text)
	if len(paragraphs) == 0 {
		return layout.PlaceholderPage(n), extract.ModeNone
	}
	return layout.Page{Number: n, Paragraphs: paragraphs}, extract.ModePlain
}

// ErrInvalidPages is returned when a requested page does not exist.
var ErrInvalidPages = errors.New("convert: invalid page selection")

// selectPages validates a page selection and returns it sorted and
// de-duplicated, or every page when requested is empty.
func selectPages(requested []int, total int) ([]int, error) {
	if len(requested) == 0 {
		all := make([]int, total)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}

	seen := make(map[int]bool, len(requested))
	out := make([]int, 0, len(requested))
	for _, n := range requested {
		if n < 1 || n > total {
			return nil, fmt.Errorf("%w: page %d of %d", ErrInvalidPages, n, total)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}
