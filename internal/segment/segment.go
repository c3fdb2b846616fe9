// Package segment splits scripts into narration units.
package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"github.com/timmy/narrator/internal/domain"
)

// Segmenter finds sentence boundaries with a punkt tokenizer trained for
// English, then merges short sentences into longer units.
type Segmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func New() (*Segmenter, error) {
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	return &Segmenter{tokenizer: t}, nil
}

// Segment returns the units of text in order. Adjacent sentences are merged
// while the combined length stays under minChars; a unit that already
// meets the threshold is flushed. The last unit is emitted even when it is
// shorter than minChars. Lengths count runes.
func (s *Segmenter) Segment(text string, minChars int) []domain.Sentence {
	var (
		units []string
		cur   string
	)
	for _, sent := range s.tokenizer.Tokenize(text) {
		part := strings.TrimSpace(sent.Text)
		if part == "" {
			continue
		}
		if cur == "" {
			cur = part
			continue
		}
		if utf8.RuneCountInString(cur)+utf8.RuneCountInString(part) < minChars {
			cur += " " + part
			continue
		}
		units = append(units, cur)
		cur = part
	}
	if cur != "" {
		units = append(units, cur)
	}

	out := make([]domain.Sentence, 0, len(units))
	for _, u := range units {
		sent := domain.NewSentence(len(out), u)
		if sent.Text == "" {
			continue
		}
		out = append(out, sent)
	}
	return out
}
