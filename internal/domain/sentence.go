package domain

import "strings"

// Sentence is one utterance unit of a script. It owns one speech artifact
// and one timing interval in the final video.
type Sentence struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
}

// NewSentence builds a Sentence, collapsing newlines in the raw text and
// precomputing the normalized form used for fingerprinting.
func NewSentence(index int, text string) Sentence {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	return Sentence{
		Index:      index,
		Text:       text,
		Normalized: NormalizeText(text),
	}
}

// Texts returns the raw text of each sentence in order.
func Texts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}
