package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunobiangulo/pdfdesk/layout"
)

func TestPlainParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []layout.Paragraph
	}{
		{"empty", "", nil},
		{"whitespace only", " \n\t\n", nil},
		{
			name: "single paragraph over lines",
			in:   "first line\n  second   line \n",
			want: []layout.Paragraph{{Text: "first line second line"}},
		},
		{
			name: "blank line separates",
			in:   "one\ntwo\n\nthree\r\n\r\n\r\nfour",
			want: []layout.Paragraph{
				{Text: "one two"},
				{Text: "three"},
				{Text: "four"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainParagraphs(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name  string
		modes []Mode
		want  Mode
	}{
		{"no pages", nil, ModeNone},
		{"all layout", []Mode{ModeLayout, ModeLayout}, ModeLayout},
		{"blank page among layout", []Mode{ModeLayout, ModeNone}, ModeLayout},
		{"fallback wins", []Mode{ModeLayout, ModePlain, ModeNone}, ModePlain},
		{"all blank", []Mode{ModeNone, ModeNone}, ModeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.modes); got != tt.want {
				t.Errorf("Combine(%v) = %q, want %q", tt.modes, got, tt.want)
			}
		})
	}
}
