package layout

import (
	"math"
	"sort"
	"strings"
)

// Fragment is one run of extracted text with a single position and size.
// X and Y locate the baseline in page space, with Y growing upward so that
// reading order is descending Y.
type Fragment struct {
	Text     string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	FontSize float64
}

// CleanFragments drops fragments whose text is empty or whitespace-only and
// replaces unusable font sizes with cfg.DefaultFontSize.
func CleanFragments(fragments []Fragment, cfg Config) []Fragment {
	cfg = cfg.WithDefaults()
	out := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		if !(f.FontSize > 0) || math.IsInf(f.FontSize, 0) {
			f.FontSize = cfg.DefaultFontSize
		}
		out = append(out, f)
	}
	return out
}

// Median returns the median of values, or 0 when values is empty.
// Even-length input averages the two middle values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
