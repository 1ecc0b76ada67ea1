// Package layout rebuilds reading structure from positioned text fragments.
// Fragments are clustered into visual lines, and lines are merged into
// paragraphs and headings using vertical-gap and font-size heuristics.
package layout

// Default thresholds. They were calibrated against real-world PDFs and are
// not derived from any formal model; override them through Config.
const (
	// DefaultFontSize replaces missing or non-positive font sizes.
	DefaultFontSize = 12.0

	// SameRowEpsilon is the Y delta at or below which the reading-order sort
	// compares X instead of Y.
	SameRowEpsilon = 0.5

	// RowToleranceFloor and RowToleranceRatio define the vertical band used
	// to decide whether a fragment joins the current line:
	// max(RowToleranceFloor, fontSize*RowToleranceRatio).
	RowToleranceFloor = 2.0
	RowToleranceRatio = 0.35

	// WordGapRatio and WordGapFloor define the horizontal gap above which a
	// space is inserted between fragments: max(fontSize*WordGapRatio, WordGapFloor).
	WordGapRatio = 0.2
	WordGapFloor = 1.0

	// ParagraphGapRatio starts a new paragraph when the vertical distance to
	// the previous line exceeds prevFontSize*ParagraphGapRatio.
	ParagraphGapRatio = 1.8

	// HeadingSizeRatio is the minimum ratio of a line's font size to the
	// page's baseline font size for the line to be a heading candidate.
	HeadingSizeRatio = 1.3

	// HeadingMaxLen is the exclusive upper bound on heading length, in runes.
	HeadingMaxLen = 120

	// TitleSizeRatio promotes a heading to level 1 when its font size is at
	// least baseFontSize*TitleSizeRatio.
	TitleSizeRatio = 2.0
)

// Config holds the tunable thresholds used by LineBuilder and Assembler.
// Zero fields fall back to the package defaults.
type Config struct {
	DefaultFontSize   float64 `json:"default_font_size" yaml:"default_font_size"`
	SameRowEpsilon    float64 `json:"same_row_epsilon" yaml:"same_row_epsilon"`
	RowToleranceFloor float64 `json:"row_tolerance_floor" yaml:"row_tolerance_floor"`
	RowToleranceRatio float64 `json:"row_tolerance_ratio" yaml:"row_tolerance_ratio"`
	WordGapRatio      float64 `json:"word_gap_ratio" yaml:"word_gap_ratio"`
	WordGapFloor      float64 `json:"word_gap_floor" yaml:"word_gap_floor"`
	ParagraphGapRatio float64 `json:"paragraph_gap_ratio" yaml:"paragraph_gap_ratio"`
	HeadingSizeRatio  float64 `json:"heading_size_ratio" yaml:"heading_size_ratio"`
	HeadingMaxLen     int     `json:"heading_max_len" yaml:"heading_max_len"`
	TitleSizeRatio    float64 `json:"title_size_ratio" yaml:"title_size_ratio"`
}

// DefaultConfig returns the calibrated default thresholds.
func DefaultConfig() Config {
	return Config{
		DefaultFontSize:   DefaultFontSize,
		SameRowEpsilon:    SameRowEpsilon,
		RowToleranceFloor: RowToleranceFloor,
		RowToleranceRatio: RowToleranceRatio,
		WordGapRatio:      WordGapRatio,
		WordGapFloor:      WordGapFloor,
		ParagraphGapRatio: ParagraphGapRatio,
		HeadingSizeRatio:  HeadingSizeRatio,
		HeadingMaxLen:     HeadingMaxLen,
		TitleSizeRatio:    TitleSizeRatio,
	}
}

// WithDefaults returns a copy of c with every zero or negative field
// replaced by its default.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.DefaultFontSize <= 0 {
		c.DefaultFontSize = d.DefaultFontSize
	}
	if c.SameRowEpsilon <= 0 {
		c.SameRowEpsilon = d.SameRowEpsilon
	}
	if c.RowToleranceFloor <= 0 {
		c.RowToleranceFloor = d.RowToleranceFloor
	}
	if c.RowToleranceRatio <= 0 {
		c.RowToleranceRatio = d.RowToleranceRatio
	}
	if c.WordGapRatio <= 0 {
		c.WordGapRatio = d.WordGapRatio
	}
	if c.WordGapFloor <= 0 {
		c.WordGapFloor = d.WordGapFloor
	}
	if c.ParagraphGapRatio <= 0 {
		c.ParagraphGapRatio = d.ParagraphGapRatio
	}
	if c.HeadingSizeRatio <= 0 {
		c.HeadingSizeRatio = d.HeadingSizeRatio
	}
	if c.HeadingMaxLen <= 0 {
		c.HeadingMaxLen = d.HeadingMaxLen
	}
	if c.TitleSizeRatio <= 0 {
		c.TitleSizeRatio = d.TitleSizeRatio
	}
	return c
}
