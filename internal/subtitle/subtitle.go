// Package subtitle times captions against the narration track.
package subtitle

import (
	"strings"
	"unicode/utf8"

	"github.com/timmy/narrator/internal/domain"
)

// Build lays sentences end to end: entry i starts where entry i-1 ends and
// lasts durations[i]. Empty input yields an empty slice.
func Build(sentences []string, durations []float64) ([]domain.CaptionEntry, error) {
	if len(sentences) != len(durations) {
		return nil, domain.Consistencyf("%d sentences for %d durations", len(sentences), len(durations))
	}
	out := make([]domain.CaptionEntry, 0, len(sentences))
	var cum float64
	for i, text := range sentences {
		end := cum + durations[i]
		out = append(out, domain.CaptionEntry{
			Index: i + 1,
			Start: cum,
			End:   end,
			Text:  strings.TrimSpace(text),
		})
		cum = end
	}
	return out, nil
}

// Wrap splits entries longer than maxChars into word-bounded pieces. Each
// piece gets a share of the parent's span proportional to its length, and
// the last piece ends exactly where the parent ended. Entries are
// renumbered from 1.
func Wrap(entries []domain.CaptionEntry, maxChars int) []domain.CaptionEntry {
	out := make([]domain.CaptionEntry, 0, len(entries))
	for _, e := range entries {
		chunks := splitWords(e.Text, maxChars)
		if len(chunks) <= 1 {
			e.Index = len(out) + 1
			out = append(out, e)
			continue
		}

		var total int
		for _, c := range chunks {
			total += utf8.RuneCountInString(c)
		}
		span := e.End - e.Start
		start := e.Start
		var consumed int
		for k, c := range chunks {
			consumed += utf8.RuneCountInString(c)
			end := e.Start + span*float64(consumed)/float64(total)
			if k == len(chunks)-1 {
				end = e.End
			}
			out = append(out, domain.CaptionEntry{Index: len(out) + 1, Start: start, End: end, Text: c})
			start = end
		}
	}
	return out
}

// splitWords packs words greedily into lines of at most maxChars runes. A
// single word longer than maxChars gets a line of its own.
func splitWords(text string, maxChars int) []string {
	words := strings.Fields(text)
	if maxChars <= 0 || len(words) == 0 {
		if len(words) == 0 {
			return nil
		}
		return []string{strings.Join(words, " ")}
	}
	var (
		lines []string
		cur   string
	)
	for _, w := range words {
		if cur == "" {
			cur = w
			continue
		}
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) <= maxChars {
			cur += " " + w
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
