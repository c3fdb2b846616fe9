package subtitle

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/timmy/narrator/internal/domain"
)

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// Render serializes entries in SubRip format.
func Render(entries []domain.CaptionEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", e.Index, FormatTimestamp(e.Start), FormatTimestamp(e.End), e.Text)
	}
	return b.String()
}

// WriteSRT writes entries to path.
func WriteSRT(path string, entries []domain.CaptionEntry) error {
	if err := os.WriteFile(path, []byte(Render(entries)), 0o644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}
