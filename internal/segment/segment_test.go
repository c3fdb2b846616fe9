package segment

import (
	"strings"
	"testing"
	"unicode"
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func newSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSegmentCoverage(t *testing.T) {
	s := newSegmenter(t)
	inputs := []string{
		"",
		"   \n\t ",
		"One.",
		"The fox ran. It was fast! Was it tired? No.",
		"Dr. Smith arrived at 5 p.m. on Monday. He left early.\nThen the rain came.",
		"No terminal punctuation here",
		"Émile a vu la mer. Ça brillait.",
		"Line one\nline two\n\nline three.",
	}
	for _, in := range inputs {
		for _, min := range []int{0, 1, 20, 80, 1000} {
			units := s.Segment(in, min)
			var joined strings.Builder
			for i, u := range units {
				if strings.TrimSpace(u.Text) == "" {
					t.Fatalf("Segment(%q, %d) produced empty unit", in, min)
				}
				if u.Index != i {
					t.Fatalf("unit %d has index %d", i, u.Index)
				}
				joined.WriteString(u.Text)
			}
			if got, want := stripSpace(joined.String()), stripSpace(in); got != want {
				t.Fatalf("Segment(%q, %d) lost characters: got %q want %q", in, min, got, want)
			}
		}
	}
}

func TestSegmentMergesShortSentences(t *testing.T) {
	s := newSegmenter(t)
	text := "It rained. The dog barked. A long sentence follows here to push the bucket past the limit."

	units := s.Segment(text, 30)
	if len(units) != 2 {
		t.Fatalf("got %d units: %+v", len(units), units)
	}
	if units[0].Text != "It rained. The dog barked." {
		t.Fatalf("first unit = %q", units[0].Text)
	}
}

func TestSegmentKeepsShortTail(t *testing.T) {
	s := newSegmenter(t)
	text := "This first sentence is comfortably longer than the threshold. Tail."
	units := s.Segment(text, 20)
	if len(units) != 2 || units[1].Text != "Tail." {
		t.Fatalf("units = %+v", units)
	}
}

func TestSegmentLargeThresholdYieldsOneUnit(t *testing.T) {
	s := newSegmenter(t)
	units := s.Segment("A. B. C.", 1000)
	if len(units) != 1 {
		t.Fatalf("got %d units", len(units))
	}
	if units[0].Normalized == "" {
		t.Fatal("normalized text not populated")
	}
}
