// Package pdfdesk is the engine behind the PDF tools: conversion of PDFs to
// editable documents through layout-aware text reconstruction, and the
// page-level utilities (merge, split, rotate, reorder, compress, protect,
// unlock, images to PDF). Every run is recorded in a SQLite conversion log.
package pdfdesk

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/pdfdesk/convert"
	"github.com/brunobiangulo/pdfdesk/emit"
	"github.com/brunobiangulo/pdfdesk/extract"
	"github.com/brunobiangulo/pdfdesk/pdfops"
	"github.com/brunobiangulo/pdfdesk/store"
)

// Engine is the main entry point for all PDF tools.
type Engine interface {
	// PDFToDocument reconstructs the text of a PDF and writes it in format
	// (docx/word, xlsx/excel, html, md/markdown, txt/text).
	PDFToDocument(ctx context.Context, in Input, format string, opts ...ConvertOption) (*Output, error)

	// Merge concatenates two or more PDFs in order.
	Merge(ctx context.Context, files []Input) (*Output, error)

	// Split cuts a PDF into parts of span pages, returned as a zip archive.
	Split(ctx context.Context, in Input, span int) (*Output, error)

	// Rotate turns the selected pages (all when empty) by degrees.
	Rotate(ctx context.Context, in Input, degrees int, pages []string) (*Output, error)

	// Reorder rewrites the PDF with pages in the given order.
	Reorder(ctx context.Context, in Input, pages []string) (*Output, error)

	// Compress optimises the PDF structure.
	Compress(ctx context.Context, in Input) (*Output, error)

	// Protect encrypts the PDF.
	Protect(ctx context.Context, in Input, userPassword, ownerPassword string) (*Output, error)

	// Unlock removes encryption using password.
	Unlock(ctx context.Context, in Input, password string) (*Output, error)

	// ImagesToPDF builds a PDF with one page per JPEG/PNG image.
	ImagesToPDF(ctx context.Context, images []Input) (*Output, error)

	// ListConversions returns the newest limit log entries.
	ListConversions(ctx context.Context, limit int) ([]Conversion, error)

	// GetConversion returns one log entry.
	GetConversion(ctx context.Context, id string) (*Conversion, error)

	// Stats summarises the log per tool.
	Stats(ctx context.Context) (*Stats, error)

	// PurgeBefore deletes log entries older than t.
	PurgeBefore(ctx context.Context, t time.Time) (int64, error)

	// Close cleanly shuts down the engine.
	Close() error
}

// Input is one uploaded file.
type Input struct {
	Filename string
	Data     []byte
}

// Output is the result of one tool run.
type Output struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`

	// Pages is the page count of the produced document, or of the source
	// document for conversions.
	Pages int `json:"pages"`

	// Mode is the extraction mode of a conversion: layout, plain or none.
	Mode string `json:"mode,omitempty"`
}

// Conversion is one entry of the conversion log.
type Conversion = store.Conversion

// ToolStat aggregates log entries for one tool.
type ToolStat = store.ToolStat

// Stats summarises the conversion log.
type Stats struct {
	Conversions int        `json:"conversions"`
	Failures    int        `json:"failures"`
	InputBytes  int64      `json:"input_bytes"`
	OutputBytes int64      `json:"output_bytes"`
	Tools       []ToolStat `json:"tools"`
}

// Tool names recorded in the log.
const (
	ToolPDFTo       = "pdf-to-"
	ToolMerge       = "merge"
	ToolSplit       = "split"
	ToolRotate      = "rotate"
	ToolReorder     = "reorder"
	ToolCompress    = "compress"
	ToolProtect     = "protect"
	ToolUnlock      = "unlock"
	ToolImagesToPDF = "images-to-pdf"
)

const pdfContentType = "application/pdf"

// ConvertOption configures PDFToDocument.
type ConvertOption func(*convertOptions)

type convertOptions struct {
	password       string
	detectHeadings *bool
	pages          []int
	title          string
}

// WithPassword opens an encrypted source document.
func WithPassword(password string) ConvertOption {
	return func(o *convertOptions) { o.password = password }
}

// WithHeadings overrides heading detection for this conversion.
func WithHeadings(enabled bool) ConvertOption {
	return func(o *convertOptions) { o.detectHeadings = &enabled }
}

// WithPages restricts the conversion to the given 1-based pages.
func WithPages(pages ...int) ConvertOption {
	return func(o *convertOptions) { o.pages = pages }
}

// WithTitle sets the output document title. Defaults to the input file
// name without extension.
func WithTitle(title string) ConvertOption {
	return func(o *convertOptions) { o.title = title }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	store     *store.Store
	converter *convert.Converter
	emitters  *emit.Registry
	now       func() time.Time
}

// New creates a new engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &engine{
		cfg: cfg,
		converter: convert.New(convert.Config{
			Concurrency: cfg.PageConcurrency,
			Layout:      cfg.Layout,
		}),
		emitters: emit.NewRegistry(),
		now:      time.Now,
	}

	if !cfg.DisableStore {
		s, err := store.New(cfg.resolveDBPath())
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		e.store = s
	}

	return e, nil
}

// PDFToDocument converts a PDF to an editable document.
func (e *engine) PDFToDocument(ctx context.Context, in Input, format string, opts ...ConvertOption) (*Output, error) {
	options := &convertOptions{}
	for _, o := range opts {
		o(options)
	}

	emitter, err := e.emitters.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	rec := store.Conversion{
		Tool:         ToolPDFTo + strings.ToLower(format),
		Filename:     in.Filename,
		OutputFormat: emitter.Extension(),
		InputBytes:   int64(len(in.Data)),
	}

	return e.run(ctx, rec, func() (*Output, error) {
		if err := checkPDF(in); err != nil {
			return nil, err
		}

		detect := !e.cfg.SkipHeadings
		if options.detectHeadings != nil {
			detect = *options.detectHeadings
		}

		data, password, err := unlockForExtraction(in.Data, options.password)
		if err != nil {
			return nil, err
		}

		res, err := e.converter.Convert(ctx, data, convert.Options{
			Password:       password,
			DetectHeadings: detect,
			Pages:          options.pages,
		})
		if err != nil {
			if password == "" && !errors.Is(err, extract.ErrEncrypted) && isEncrypted(data) {
				return nil, fmt.Errorf("%w: %w", ErrPasswordRequired, err)
			}
			return nil, mapError(err, password != "")
		}

		title := options.title
		if title == "" {
			title = baseName(in.Filename)
		}

		var buf bytes.Buffer
		if err := emitter.Emit(&buf, &emit.Document{Title: title, Pages: res.Pages}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
		}

		return &Output{
			Filename:    outputName(in.Filename, "", emitter.Extension()),
			ContentType: emitter.ContentType(),
			Data:        buf.Bytes(),
			Pages:       res.PageCount,
			Mode:        string(res.Mode),
		}, nil
	})
}

// Merge concatenates PDFs in upload order.
func (e *engine) Merge(ctx context.Context, files []Input) (*Output, error) {
	rec := store.Conversion{Tool: ToolMerge, Filename: joinNames(files), InputBytes: totalBytes(files)}
	return e.run(ctx, rec, func() (*Output, error) {
		if len(files) < 2 {
			return nil, fmt.Errorf("%w: merge needs at least 2 files, got %d", ErrInvalidInput, len(files))
		}
		docs := make([][]byte, len(files))
		for i, f := range files {
			if err := checkPDF(f); err != nil {
				return nil, err
			}
			docs[i] = f.Data
		}
		out, err := pdfops.Merge(docs)
		if err != nil {
			return nil, mapError(err, false)
		}
		return e.pdfOutput("merged.pdf", out)
	})
}

// Split returns a zip archive holding one PDF per span pages.
func (e *engine) Split(ctx context.Context, in Input, span int) (*Output, error) {
	rec := store.Conversion{Tool: ToolSplit, Filename: in.Filename, InputBytes: int64(len(in.Data))}
	return e.run(ctx, rec, func() (*Output, error) {
		if err := checkPDF(in); err != nil {
			return nil, err
		}
		parts, err := pdfops.Split(in.Data, span)
		if err != nil {
			return nil, mapError(err, false)
		}

		base := baseName(in.Filename)
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		pages := 0
		for _, p := range parts {
			name := fmt.Sprintf("%s-pages-%d-%d.pdf", base, p.From, p.Thru)
			if p.From == p.Thru {
				name = fmt.Sprintf("%s-page-%d.pdf", base, p.From)
			}
			fw, err := zw.Create(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
			}
			if _, err := fw.Write(p.Data); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
			}
			pages += p.Thru - p.From + 1
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
		}

		return &Output{
			Filename:    base + "-split.zip",
			ContentType: "application/zip",
			Data:        buf.Bytes(),
			Pages:       pages,
		}, nil
	})
}

// Rotate turns pages by a multiple of 90 degrees.
func (e *engine) Rotate(ctx context.Context, in Input, degrees int, pages []string) (*Output, error) {
	return e.pdfTool(ctx, ToolRotate, in, "rotated", func() ([]byte, error) {
		return pdfops.Rotate(in.Data, degrees, pages)
	})
}

// Reorder rewrites pages in the given order.
func (e *engine) Reorder(ctx context.Context, in Input, pages []string) (*Output, error) {
	return e.pdfTool(ctx, ToolReorder, in, "reordered", func() ([]byte, error) {
		return pdfops.Reorder(in.Data, pages)
	})
}

// Compress optimises the PDF structure.
func (e *engine) Compress(ctx context.Context, in Input) (*Output, error) {
	return e.pdfTool(ctx, ToolCompress, in, "compressed", func() ([]byte, error) {
		return pdfops.Compress(in.Data)
	})
}

// Protect encrypts the PDF with AES-256.
func (e *engine) Protect(ctx context.Context, in Input, userPassword, ownerPassword string) (*Output, error) {
	return e.pdfTool(ctx, ToolProtect, in, "protected", func() ([]byte, error) {
		return pdfops.Protect(in.Data, userPassword, ownerPassword)
	})
}

// Unlock removes encryption.
func (e *engine) Unlock(ctx context.Context, in Input, password string) (*Output, error) {
	return e.pdfTool(ctx, ToolUnlock, in, "unlocked", func() ([]byte, error) {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		return pdfops.Unlock(in.Data, password)
	})
}

// ImagesToPDF builds one page per image.
func (e *engine) ImagesToPDF(ctx context.Context, images []Input) (*Output, error) {
	rec := store.Conversion{Tool: ToolImagesToPDF, Filename: joinNames(images), InputBytes: totalBytes(images)}
	return e.run(ctx, rec, func() (*Output, error) {
		data := make([][]byte, len(images))
		for i, img := range images {
			data[i] = img.Data
		}
		out, err := pdfops.ImagesToPDF(data)
		if err != nil {
			return nil, mapError(err, false)
		}
		name := "images.pdf"
		if len(images) == 1 {
			name = outputName(images[0].Filename, "", "pdf")
		}
		return e.pdfOutput(name, out)
	})
}

// ListConversions returns the newest log entries.
func (e *engine) ListConversions(ctx context.Context, limit int) ([]Conversion, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	return e.store.ListConversions(ctx, limit)
}

// GetConversion returns a single log entry.
func (e *engine) GetConversion(ctx context.Context, id string) (*Conversion, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	c, err := e.store.GetConversion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, err
}

// Stats summarises the log.
func (e *engine) Stats(ctx context.Context) (*Stats, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	totals, err := e.store.DBStats(ctx)
	if err != nil {
		return nil, err
	}
	tools, err := e.store.ToolStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Conversions: totals.Conversions,
		Failures:    totals.Failures,
		InputBytes:  totals.InputBytes,
		OutputBytes: totals.OutputBytes,
		Tools:       tools,
	}, nil
}

// PurgeBefore deletes old log entries.
func (e *engine) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.DeleteBefore(ctx, t)
}

// Close shuts down the engine.
func (e *engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// --- helpers ---

// pdfTool runs a single-input PDF-to-PDF utility.
func (e *engine) pdfTool(ctx context.Context, tool string, in Input, suffix string, fn func() ([]byte, error)) (*Output, error) {
	rec := store.Conversion{Tool: tool, Filename: in.Filename, InputBytes: int64(len(in.Data))}
	return e.run(ctx, rec, func() (*Output, error) {
		if err := checkPDF(in); err != nil {
			return nil, err
		}
		out, err := fn()
		if err != nil {
			return nil, mapError(err, tool == ToolUnlock)
		}
		return e.pdfOutput(outputName(in.Filename, suffix, "pdf"), out)
	})
}

func (e *engine) pdfOutput(name string, data []byte) (*Output, error) {
	out := &Output{Filename: name, ContentType: pdfContentType, Data: data}
	if n, err := pdfops.PageCount(data); err == nil {
		out.Pages = n
	}
	return out, nil
}

// run checks ctx, times fn, assigns the output ID and records the outcome.
// Log failures are reported but never returned.
func (e *engine) run(ctx context.Context, rec store.Conversion, fn func() (*Output, error)) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := e.now()
	rec.ID = uuid.NewString()
	out, err := fn()
	rec.DurationMS = time.Since(start).Milliseconds()
	rec.CreatedAt = start

	if err != nil {
		rec.Status = store.StatusFailed
		rec.Error = err.Error()
		slog.Warn("tool failed", "tool", rec.Tool, "filename", rec.Filename, "error", err)
	} else {
		out.ID = rec.ID
		rec.Status = store.StatusOK
		rec.OutputBytes = int64(len(out.Data))
		rec.Pages = out.Pages
		rec.Mode = out.Mode
		slog.Info("tool completed",
			"tool", rec.Tool,
			"id", rec.ID,
			"filename", rec.Filename,
			"pages", out.Pages,
			"mode", out.Mode,
			"duration_ms", rec.DurationMS)
	}

	if e.store != nil {
		if _, serr := e.store.RecordConversion(context.WithoutCancel(ctx), rec); serr != nil {
			slog.Warn("recording conversion", "tool", rec.Tool, "error", serr)
		}
	}

	return out, err
}

// unlockForExtraction decrypts data with pdfcpu when a password is given,
// since the glyph reader only understands the older encryption schemes. It
// returns the bytes to extract from and the password still needed for them.
// Unencrypted input passes through unchanged.
func unlockForExtraction(data []byte, password string) ([]byte, string, error) {
	if password == "" {
		return data, "", nil
	}
	plain, err := pdfops.Unlock(data, password)
	switch {
	case err == nil:
		return plain, "", nil
	case errors.Is(err, pdfops.ErrPassword):
		return nil, "", fmt.Errorf("%w: %w", ErrWrongPassword, err)
	default:
		return data, password, nil
	}
}

// isEncrypted reports whether pdfcpu needs a password to read data.
func isEncrypted(data []byte) bool {
	_, err := pdfops.PageCount(data)
	return errors.Is(err, pdfops.ErrPassword)
}

// mapError translates package errors into the engine's sentinels.
func mapError(err error, passwordGiven bool) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, extract.ErrEncrypted):
		return fmt.Errorf("%w: %w", ErrPasswordRequired, err)
	case errors.Is(err, extract.ErrInvalidPassword):
		return fmt.Errorf("%w: %w", ErrWrongPassword, err)
	case errors.Is(err, pdfops.ErrPassword):
		if passwordGiven {
			return fmt.Errorf("%w: %w", ErrWrongPassword, err)
		}
		return fmt.Errorf("%w: %w", ErrPasswordRequired, err)
	case errors.Is(err, pdfops.ErrUnsupportedImage):
		return fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	case errors.Is(err, pdfops.ErrInvalidArgument), errors.Is(err, convert.ErrInvalidPages),
		errors.Is(err, extract.ErrNoPages):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
}

// pdfMagicWindow is how far into the file the %PDF- header may start.
const pdfMagicWindow = 1024

// checkPDF rejects empty uploads and files without a PDF header.
func checkPDF(in Input) error {
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidInput, displayName(in.Filename))
	}
	head := in.Data
	if len(head) > pdfMagicWindow {
		head = head[:pdfMagicWindow]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return fmt.Errorf("%w: %s is not a PDF", ErrInvalidInput, displayName(in.Filename))
	}
	return nil
}

// baseName strips directory and extension, defaulting to "document".
func baseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	return name
}

// outputName builds "<base>[-suffix].<ext>".
func outputName(filename, suffix, ext string) string {
	name := baseName(filename)
	if suffix != "" {
		name += "-" + suffix
	}
	return name + "." + ext
}

func displayName(filename string) string {
	if filename == "" {
		return "upload"
	}
	return filename
}

func joinNames(files []Input) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	return strings.Join(names, ",")
}

func totalBytes(files []Input) int64 {
	var n int64
	for _, f := range files {
		n += int64(len(f.Data))
	}
	return n
}
