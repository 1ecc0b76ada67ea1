package extract

import (
	"strings"

	"github.com/brunobiangulo/pdfdesk/layout"
)

// Mode reports how a page's text was obtained.
type Mode string

const (
	// ModeLayout means positioned fragments went through line and paragraph reconstruction.
	ModeLayout Mode = "layout"

	// ModePlain means positioned extraction failed and the unpositioned text was split on blank lines.
	ModePlain Mode = "plain"

	// ModeNone means no text could be extracted.
	ModeNone Mode = "none"
)

// Combine folds per-page modes into a document mode: "none" only when no
// page produced text, "plain" when any page needed the fallback.
func Combine(modes []Mode) Mode {
	if len(modes) == 0 {
		return ModeNone
	}
	result := ModeNone
	for _, m := range modes {
		switch m {
		case ModePlain:
			return ModePlain
		case ModeLayout:
			result = ModeLayout
		}
	}
	return result
}

// PlainParagraphs splits unpositioned page text into paragraphs on blank
// lines. Lines inside a paragraph are joined with single spaces. No heading
// detection is attempted.
func PlainParagraphs(text string) []layout.Paragraph {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		out     []layout.Paragraph
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, layout.Paragraph{Text: strings.Join(current, " ")})
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	return out
}
