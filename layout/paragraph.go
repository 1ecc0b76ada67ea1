package layout

import (
	"strings"
	"unicode/utf8"
)

// HeadingLevel marks an assembled unit as a heading.
type HeadingLevel int

const (
	HeadingNone HeadingLevel = iota
	Heading1
	Heading2
)

// String returns a string representation of the heading level.
func (l HeadingLevel) String() string {
	switch l {
	case Heading1:
		return "heading1"
	case Heading2:
		return "heading2"
	default:
		return "none"
	}
}

// Paragraph is a logical text block spanning one or more lines.
type Paragraph struct {
	Text    string
	Heading HeadingLevel

	// Placeholder is set on the unit emitted for a page without text.
	Placeholder bool
}

// IsHeading reports whether the paragraph was classified as a heading.
func (p Paragraph) IsHeading() bool {
	return p.Heading != HeadingNone
}

// Assembler merges top-to-bottom lines into paragraphs and headings.
type Assembler struct {
	config Config
}

// NewAssembler creates an Assembler with the default thresholds.
func NewAssembler() *Assembler {
	return &Assembler{config: DefaultConfig()}
}

// NewAssemblerWithConfig creates an Assembler with custom thresholds.
func NewAssemblerWithConfig(config Config) *Assembler {
	return &Assembler{config: config.WithDefaults()}
}

// Assemble walks lines in order and groups them into paragraphs. A new
// paragraph starts on a large vertical gap, on a heading line, or after a
// heading: headings are always single-line units.
func (a *Assembler) Assemble(lines []Line, detectHeadings bool) []Paragraph {
	if len(lines) == 0 {
		return nil
	}

	base := a.BaseFontSize(lines)

	var (
		out          []Paragraph
		current      strings.Builder
		currentLevel HeadingLevel
		prevY        float64
		havePrev     bool
		prevFontSize = base
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			out = append(out, Paragraph{Text: text, Heading: currentLevel})
		}
		current.Reset()
		currentLevel = HeadingNone
	}

	for _, line := range lines {
		largeGap := havePrev && prevY-line.Y > prevFontSize*a.config.ParagraphGapRatio
		level := HeadingNone
		if detectHeadings {
			level = a.headingLevel(line, base)
		}

		if largeGap || level != HeadingNone || currentLevel != HeadingNone {
			flush()
		}

		if current.Len() == 0 {
			current.WriteString(line.Text)
			currentLevel = level
		} else {
			current.WriteByte(' ')
			current.WriteString(line.Text)
		}

		prevY = line.Y
		havePrev = true
		if line.FontSize > 0 {
			prevFontSize = line.FontSize
		}
	}
	flush()

	return out
}

// BaseFontSize is the median of the lines' positive font sizes, or the
// configured default when there are none.
func (a *Assembler) BaseFontSize(lines []Line) float64 {
	sizes := make([]float64, 0, len(lines))
	for _, l := range lines {
		if l.FontSize > 0 {
			sizes = append(sizes, l.FontSize)
		}
	}
	if len(sizes) == 0 {
		return a.config.DefaultFontSize
	}
	return Median(sizes)
}

// headingLevel classifies a line against the page's baseline font size.
// A heading must be visibly larger, short, and free of periods; the period
// rule also rejects abbreviations such as "Fig. 1".
func (a *Assembler) headingLevel(line Line, base float64) HeadingLevel {
	if line.FontSize < base*a.config.HeadingSizeRatio {
		return HeadingNone
	}
	if utf8.RuneCountInString(line.Text) >= a.config.HeadingMaxLen {
		return HeadingNone
	}
	if strings.Contains(line.Text, ".") {
		return HeadingNone
	}
	if line.FontSize >= base*a.config.TitleSizeRatio {
		return Heading1
	}
	return Heading2
}
