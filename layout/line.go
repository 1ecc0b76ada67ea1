package layout

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Line is a horizontally ordered cluster of fragments that sit on the same
// visual row.
type Line struct {
	// Text is the fragments joined left to right with reconstructed spaces.
	Text string

	// FontSize is the median font size of the member fragments.
	FontSize float64

	// Y is the running average of the member fragments' Y positions.
	Y float64

	// Fragments are the members, sorted by ascending X.
	Fragments []Fragment
}

// LineBuilder groups fragments of a single page into lines.
type LineBuilder struct {
	config Config
}

// NewLineBuilder creates a LineBuilder with the default thresholds.
func NewLineBuilder() *LineBuilder {
	return &LineBuilder{config: DefaultConfig()}
}

// NewLineBuilderWithConfig creates a LineBuilder with custom thresholds.
func NewLineBuilderWithConfig(config Config) *LineBuilder {
	return &LineBuilder{config: config.WithDefaults()}
}

// Build clusters fragments into lines ordered top to bottom. Input order is
// irrelevant: the same set of fragments always yields the same lines.
// Fragments are expected to carry non-blank text; use CleanFragments first.
func (b *LineBuilder) Build(fragments []Fragment) []Line {
	if len(fragments) == 0 {
		return nil
	}

	sorted := b.readingOrder(fragments)

	var (
		lines   []Line
		members []Fragment
		lineY   float64
	)
	for _, f := range sorted {
		tolerance := math.Max(b.config.RowToleranceFloor, f.FontSize*b.config.RowToleranceRatio)
		if len(members) > 0 && math.Abs(f.Y-lineY) <= tolerance {
			members = append(members, f)
			lineY = (lineY + f.Y) / 2
			continue
		}
		if len(members) > 0 {
			lines = b.appendLine(lines, members, lineY)
		}
		members = []Fragment{f}
		lineY = f.Y
	}
	if len(members) > 0 {
		lines = b.appendLine(lines, members, lineY)
	}
	return lines
}

// readingOrder sorts a copy of fragments by descending Y, falling back to
// ascending X when two Y values are within SameRowEpsilon. The exact
// (Y, X, text, width) pre-sort makes the epsilon pass independent of input
// order.
func (b *LineBuilder) readingOrder(fragments []Fragment) []Fragment {
	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return leftOf(sorted[i], sorted[j])
	})

	eps := b.config.SameRowEpsilon
	sort.SliceStable(sorted, func(i, j int) bool {
		dy := sorted[i].Y - sorted[j].Y
		if math.Abs(dy) <= eps {
			return leftOf(sorted[i], sorted[j])
		}
		return dy > 0
	})
	return sorted
}

// appendLine finalises one cluster and appends it unless its text is blank.
func (b *LineBuilder) appendLine(lines []Line, members []Fragment, y float64) []Line {
	frags := make([]Fragment, len(members))
	copy(frags, members)
	sort.SliceStable(frags, func(i, j int) bool {
		return leftOf(frags[i], frags[j])
	})

	text := normalizeSpace(b.joinFragments(frags))
	if text == "" {
		return lines
	}

	sizes := make([]float64, len(frags))
	for i, f := range frags {
		sizes[i] = f.FontSize
	}

	return append(lines, Line{
		Text:      text,
		FontSize:  Median(sizes),
		Y:         y,
		Fragments: frags,
	})
}

// leftOf orders fragments by X, then text, then width, so fragments
// stacked at the same position come out the same way for any input order.
func leftOf(a, b Fragment) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Text != b.Text {
		return a.Text < b.Text
	}
	return a.Width < b.Width
}

// joinFragments concatenates x-sorted fragments, inserting one space where
// the horizontal gap exceeds max(prev.FontSize*WordGapRatio, WordGapFloor).
func (b *LineBuilder) joinFragments(frags []Fragment) string {
	var sb strings.Builder
	for i, f := range frags {
		if i > 0 {
			prev := frags[i-1]
			gap := f.X - (prev.X + prev.Width)
			threshold := math.Max(prev.FontSize*b.config.WordGapRatio, b.config.WordGapFloor)
			if gap > threshold && !endsWithSpace(sb.String()) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(f.Text)
	}
	return sb.String()
}

func endsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

// normalizeSpace collapses whitespace runs to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
