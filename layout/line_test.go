package layout

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func frag(text string, x, y, width, size float64) Fragment {
	return Fragment{Text: text, X: x, Y: y, Width: width, Height: size, FontSize: size}
}

func lineTexts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// ---------------------------------------------------------------------------
// Horizontal joining
// ---------------------------------------------------------------------------

func TestBuildGapSpacing(t *testing.T) {
	tests := []struct {
		name   string
		worldX float64
		want   string
	}{
		{"gap above threshold", 40, "Hello World"},
		{"gap below threshold", 31, "HelloWorld"},
		{"touching", 30, "HelloWorld"},
		{"overlapping", 25, "HelloWorld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := NewLineBuilder().Build([]Fragment{
				frag("Hello", 0, 100, 30, 12),
				frag("World", tt.worldX, 100, 30, 12),
			})
			if len(lines) != 1 {
				t.Fatalf("expected 1 line, got %d: %v", len(lines), lineTexts(lines))
			}
			if lines[0].Text != tt.want {
				t.Errorf("text = %q, want %q", lines[0].Text, tt.want)
			}
		})
	}
}

func TestBuildGapThresholdUsesFloor(t *testing.T) {
	// fontSize 3 gives 0.6, below the floor of 1: a gap of 0.8 joins
	// without a space, a gap of 1.5 inserts one.
	lines := NewLineBuilder().Build([]Fragment{
		frag("a", 0, 100, 2, 3),
		frag("b", 2.8, 100, 2, 3),
		frag("c", 6.3, 100, 2, 3),
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "ab c" {
		t.Errorf("text = %q, want %q", lines[0].Text, "ab c")
	}
}

func TestBuildNoDuplicateSpace(t *testing.T) {
	lines := NewLineBuilder().Build([]Fragment{
		frag("Hello ", 0, 100, 36, 12),
		frag("World", 60, 100, 30, 12),
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "Hello World" {
		t.Errorf("text = %q, want %q", lines[0].Text, "Hello World")
	}
}

func TestBuildSortsMembersByX(t *testing.T) {
	// Extraction order is right to left; output must read left to right.
	lines := NewLineBuilder().Build([]Fragment{
		frag("three", 100, 200, 30, 12),
		frag("two", 50, 200.3, 20, 12),
		frag("one", 0, 199.8, 20, 12),
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(lines), lineTexts(lines))
	}
	if lines[0].Text != "one two three" {
		t.Errorf("text = %q, want %q", lines[0].Text, "one two three")
	}
	for i := 1; i < len(lines[0].Fragments); i++ {
		if lines[0].Fragments[i-1].X > lines[0].Fragments[i].X {
			t.Errorf("fragments not sorted by X: %v", lines[0].Fragments)
		}
	}
}

// ---------------------------------------------------------------------------
// Vertical clustering
// ---------------------------------------------------------------------------

func TestBuildVerticalClustering(t *testing.T) {
	t.Run("within tolerance merges", func(t *testing.T) {
		lines := NewLineBuilder().Build([]Fragment{
			frag("Hello", 0, 100, 30, 12),
			frag("World", 40, 101.5, 30, 12),
		})
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d: %v", len(lines), lineTexts(lines))
		}
		if lines[0].Text != "Hello World" {
			t.Errorf("text = %q, want %q", lines[0].Text, "Hello World")
		}
	})

	t.Run("outside tolerance splits", func(t *testing.T) {
		lines := NewLineBuilder().Build([]Fragment{
			frag("lower", 0, 100, 30, 12),
			frag("upper", 0, 110, 30, 12),
		})
		want := []string{"upper", "lower"}
		if diff := cmp.Diff(want, lineTexts(lines)); diff != "" {
			t.Errorf("lines mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("small font uses tolerance floor", func(t *testing.T) {
		// max(2, 4*0.35) = 2
		lines := NewLineBuilder().Build([]Fragment{
			frag("a", 0, 100, 3, 4),
			frag("b", 0, 102.5, 3, 4),
		})
		if len(lines) != 2 {
			t.Errorf("expected 2 lines, got %d: %v", len(lines), lineTexts(lines))
		}
	})
}

func TestBuildRunningAverageY(t *testing.T) {
	lines := NewLineBuilder().Build([]Fragment{
		frag("a", 0, 100, 5, 12),
		frag("b", 10, 101, 5, 12),
		frag("c", 20, 102, 5, 12),
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	// 102 -> (102+101)/2 = 101.5 -> (101.5+100)/2 = 100.75
	if math.Abs(lines[0].Y-100.75) > 1e-9 {
		t.Errorf("Y = %v, want 100.75", lines[0].Y)
	}
}

func TestBuildMedianFontSize(t *testing.T) {
	tests := []struct {
		name  string
		sizes []float64
		want  float64
	}{
		{"odd count", []float64{10, 14, 12}, 12},
		{"even count", []float64{10, 12}, 11},
		{"single", []float64{9}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var frags []Fragment
			for i, s := range tt.sizes {
				frags = append(frags, frag("x", float64(i*20), 100, 5, s))
			}
			lines := NewLineBuilder().Build(frags)
			if len(lines) != 1 {
				t.Fatalf("expected 1 line, got %d", len(lines))
			}
			if lines[0].FontSize != tt.want {
				t.Errorf("FontSize = %v, want %v", lines[0].FontSize, tt.want)
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	if lines := NewLineBuilder().Build(nil); len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
}

func TestBuildDropsBlankLines(t *testing.T) {
	lines := NewLineBuilder().Build([]Fragment{
		frag(" \t", 0, 300, 5, 12),
		frag("text", 0, 200, 20, 12),
	})
	want := []string{"text"}
	if diff := cmp.Diff(want, lineTexts(lines)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Order independence
// ---------------------------------------------------------------------------

func sampleFragments() []Fragment {
	return []Fragment{
		frag("Quarterly", 72, 720, 60, 20),
		frag("Report", 140, 720.2, 45, 20),
		frag("Revenue", 72, 690, 42, 12),
		frag("grew", 118, 690.3, 24, 12),
		frag("by", 146, 689.9, 12, 12),
		frag("12%", 161, 690, 20, 12),
		frag("this", 72, 675, 20, 12),
		frag("quarter.", 95, 675, 40, 12),
		frag("Costs", 72, 600, 30, 12),
		frag("fell", 105, 600.1, 20, 12),
		frag("Footer", 72, 40, 30, 8),
	}
}

func TestBuildShuffleInvariant(t *testing.T) {
	b := NewLineBuilder()
	base := sampleFragments()
	want := b.Build(base)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := make([]Fragment, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := b.Build(shuffled)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("shuffle %d changed output (-want +got):\n%s", i, diff)
		}
	}

	wantTexts := []string{
		"Quarterly Report",
		"Revenue grew by 12%",
		"this quarter.",
		"Costs fell",
		"Footer",
	}
	if diff := cmp.Diff(wantTexts, lineTexts(want)); diff != "" {
		t.Errorf("line texts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildStackedFragments(t *testing.T) {
	b := NewLineBuilder()
	stacked := []Fragment{
		{Text: "b", X: 0, Y: 100, FontSize: 12},
		{Text: "a", X: 0, Y: 100, FontSize: 12, Width: 4},
		{Text: "a", X: 0, Y: 100, FontSize: 12},
		{Text: "c", X: 0, Y: 100.2, FontSize: 12},
	}
	want := b.Build(stacked)
	if len(want) != 1 || want[0].Text != "aabc" {
		t.Fatalf("expected one line \"aabc\", got %+v", want)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := make([]Fragment, len(stacked))
		copy(shuffled, stacked)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if diff := cmp.Diff(want, b.Build(shuffled)); diff != "" {
			t.Fatalf("shuffle %d changed output (-want +got):\n%s", i, diff)
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestCleanFragments(t *testing.T) {
	in := []Fragment{
		{Text: "  ", FontSize: 12},
		{Text: "", FontSize: 12},
		{Text: "zero", FontSize: 0},
		{Text: "negative", FontSize: -3},
		{Text: "nan", FontSize: math.NaN()},
		{Text: "inf", FontSize: math.Inf(1)},
		{Text: "ok", FontSize: 9},
	}
	got := CleanFragments(in, Config{})

	wantSizes := map[string]float64{
		"zero": 12, "negative": 12, "nan": 12, "inf": 12, "ok": 9,
	}
	if len(got) != len(wantSizes) {
		t.Fatalf("expected %d fragments, got %d", len(wantSizes), len(got))
	}
	for _, f := range got {
		if f.FontSize != wantSizes[f.Text] {
			t.Errorf("%q: FontSize = %v, want %v", f.Text, f.FontSize, wantSizes[f.Text])
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{5}, 5},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.want {
			t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{WordGapRatio: 0.5}.WithDefaults()
	want := DefaultConfig()
	want.WordGapRatio = 0.5
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
