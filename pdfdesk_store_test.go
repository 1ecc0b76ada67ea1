//go:build cgo

package pdfdesk

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/brunobiangulo/pdfdesk/store"
)

func newStoreEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "log.db")
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestConversionsAreRecorded(t *testing.T) {
	e := newStoreEngine(t)
	ctx := context.Background()

	out, err := e.PDFToDocument(ctx, reportInput(), "word")
	if err != nil {
		t.Fatalf("PDFToDocument: %v", err)
	}
	if _, err := e.Merge(ctx, []Input{reportInput()}); err == nil {
		t.Fatal("expected merge of one file to fail")
	}

	got, err := e.GetConversion(ctx, out.ID)
	if err != nil {
		t.Fatalf("GetConversion: %v", err)
	}
	if got.Tool != "pdf-to-word" || got.OutputFormat != "docx" || got.Status != store.StatusOK {
		t.Errorf("unexpected row %+v", got)
	}
	if got.Pages != 2 || got.Mode != "layout" || got.Filename != "uploads/Report.pdf" {
		t.Errorf("unexpected row %+v", got)
	}
	if got.OutputBytes != int64(len(out.Data)) {
		t.Errorf("OutputBytes = %d, want %d", got.OutputBytes, len(out.Data))
	}

	list, err := e.ListConversions(ctx, 10)
	if err != nil {
		t.Fatalf("ListConversions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Conversions != 2 || stats.Failures != 1 || len(stats.Tools) != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	if _, err := e.GetConversion(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeBefore(t *testing.T) {
	e := newStoreEngine(t)
	ctx := context.Background()

	if _, err := e.Compress(ctx, reportInput()); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	n, err := e.PurgeBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
}
