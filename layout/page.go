package layout

// NoTextPlaceholder is the text of the unit emitted for a page that yields
// no lines, so that output page counts match the source document.
const NoTextPlaceholder = "No extractable text on this page."

// Page is the assembled content of one source page.
type Page struct {
	// Number is the 1-based page number in the source document.
	Number int

	// Paragraphs are the units in reading order. Never empty.
	Paragraphs []Paragraph
}

// IsPlaceholder reports whether the page carries only the no-text unit.
func (p Page) IsPlaceholder() bool {
	return len(p.Paragraphs) == 1 && p.Paragraphs[0].Placeholder
}

// PlaceholderPage returns the page emitted when nothing could be extracted.
func PlaceholderPage(number int) Page {
	return Page{
		Number:     number,
		Paragraphs: []Paragraph{{Text: NoTextPlaceholder, Placeholder: true}},
	}
}

// Analyzer runs the full fragment-to-paragraph pipeline for one page.
// It holds no per-page state and is safe for concurrent use.
type Analyzer struct {
	config    Config
	lines     *LineBuilder
	assembler *Assembler
}

// NewAnalyzer creates an Analyzer sharing config across both stages.
func NewAnalyzer(config Config) *Analyzer {
	config = config.WithDefaults()
	return &Analyzer{
		config:    config,
		lines:     NewLineBuilderWithConfig(config),
		assembler: NewAssemblerWithConfig(config),
	}
}

// Lines cleans fragments and clusters them into lines.
func (a *Analyzer) Lines(fragments []Fragment) []Line {
	return a.lines.Build(CleanFragments(fragments, a.config))
}

// AnalyzePage turns one page's fragments into paragraphs. A page without
// any non-blank line yields PlaceholderPage.
func (a *Analyzer) AnalyzePage(number int, fragments []Fragment, detectHeadings bool) Page {
	paragraphs := a.assembler.Assemble(a.Lines(fragments), detectHeadings)
	if len(paragraphs) == 0 {
		return PlaceholderPage(number)
	}
	return Page{Number: number, Paragraphs: paragraphs}
}
