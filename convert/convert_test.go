package convert

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunobiangulo/pdfdesk/extract"
	"github.com/brunobiangulo/pdfdesk/internal/testpdf"
	"github.com/brunobiangulo/pdfdesk/layout"
)

func TestConvertReport(t *testing.T) {
	c := New(Config{})
	res, err := c.Convert(context.Background(), testpdf.Report(), Options{DetectHeadings: true})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if res.PageCount != 2 || len(res.Pages) != 2 {
		t.Fatalf("PageCount = %d, len(Pages) = %d, want 2 and 2", res.PageCount, len(res.Pages))
	}

	want := layout.Page{
		Number: 1,
		Paragraphs: []layout.Paragraph{
			{Text: "Annual Report", Heading: layout.Heading1},
			{Text: "Hello World second line here"},
		},
	}
	if diff := cmp.Diff(want, res.Pages[0]); diff != "" {
		t.Errorf("page 1 mismatch (-want +got):\n%s", diff)
	}

	if !res.Pages[1].IsPlaceholder() {
		t.Errorf("page 2: expected placeholder, got %+v", res.Pages[1])
	}
	if diff := cmp.Diff([]extract.Mode{extract.ModeLayout, extract.ModeNone}, res.Modes); diff != "" {
		t.Errorf("modes mismatch (-want +got):\n%s", diff)
	}
	if res.Mode != extract.ModeLayout {
		t.Errorf("Mode = %q, want %q", res.Mode, extract.ModeLayout)
	}
}

func TestConvertWithoutHeadings(t *testing.T) {
	res, err := New(Config{}).Convert(context.Background(), testpdf.Report(), Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for _, p := range res.Pages[0].Paragraphs {
		if p.IsHeading() {
			t.Errorf("unexpected heading %q", p.Text)
		}
	}
}

func TestConvertDeterministic(t *testing.T) {
	c := New(Config{Concurrency: 3})
	data := manyPages(7)

	first, err := c.Convert(context.Background(), data, Options{DetectHeadings: true})
	if err != nil {
		t.Fatalf("first Convert: %v", err)
	}
	second, err := c.Convert(context.Background(), data, Options{DetectHeadings: true})
	if err != nil {
		t.Fatalf("second Convert: %v", err)
	}
	if diff := cmp.Diff(first.Pages, second.Pages); diff != "" {
		t.Errorf("repeated conversion differs (-first +second):\n%s", diff)
	}
}

func TestConvertPreservesPageOrder(t *testing.T) {
	res, err := New(Config{Concurrency: 4}).Convert(context.Background(), manyPages(9), Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Pages) != 9 {
		t.Fatalf("expected 9 pages, got %d", len(res.Pages))
	}
	for i, p := range res.Pages {
		if p.Number != i+1 {
			t.Errorf("Pages[%d].Number = %d", i, p.Number)
		}
		want := fmt.Sprintf("Body of page %d", i+1)
		if len(p.Paragraphs) != 1 || p.Paragraphs[0].Text != want {
			t.Errorf("page %d paragraphs = %+v, want %q", i+1, p.Paragraphs, want)
		}
	}
}

func TestConvertPageSelection(t *testing.T) {
	res, err := New(Config{}).Convert(context.Background(), manyPages(5), Options{Pages: []int{4, 2, 4}})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	var got []int
	for _, p := range res.Pages {
		got = append(got, p.Number)
	}
	if diff := cmp.Diff([]int{2, 4}, got); diff != "" {
		t.Errorf("selected pages mismatch (-want +got):\n%s", diff)
	}
	if res.PageCount != 5 {
		t.Errorf("PageCount = %d, want 5", res.PageCount)
	}

	_, err = New(Config{}).Convert(context.Background(), manyPages(2), Options{Pages: []int{3}})
	if !errors.Is(err, ErrInvalidPages) {
		t.Errorf("expected ErrInvalidPages, got %v", err)
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Convert(ctx, manyPages(3), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestConvertInvalidPDF(t *testing.T) {
	if _, err := New(Config{}).Convert(context.Background(), []byte("nope"), Options{}); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestSelectPages(t *testing.T) {
	got, err := selectPages(nil, 3)
	if err != nil {
		t.Fatalf("selectPages: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("all pages mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range [][]int{{0}, {4}, {1, -2}} {
		if _, err := selectPages(bad, 3); !errors.Is(err, ErrInvalidPages) {
			t.Errorf("selectPages(%v): expected ErrInvalidPages, got %v", bad, err)
		}
	}
}

func manyPages(n int) []byte {
	pages := make([]testpdf.Page, n)
	for i := range pages {
		pages[i] = testpdf.Page{
			{S: fmt.Sprintf("Body of page %d", i+1), X: 72, Y: 700, Size: 12},
		}
	}
	return testpdf.Build(pages...)
}
