package generate

import (
	"context"
	"fmt"

	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/provider"
)

// SpeechGenerator narrates sentences with a fixed voice.
type SpeechGenerator struct {
	gen       *Generator
	providers []provider.SpeechProvider
	probe     provider.MediaProbe
	voice     string
}

func NewSpeechGenerator(c Cache, probe provider.MediaProbe, policy Policy, voice string, providers []provider.SpeechProvider) *SpeechGenerator {
	return &SpeechGenerator{
		gen:       NewGenerator(domain.AssetSpeech, c, probe, policy),
		providers: providers,
		probe:     probe,
		voice:     voice,
	}
}

// SpeechFingerprint keys narration by text and voice. The provider is left
// out, so whichever backend answered first serves later jobs.
func SpeechFingerprint(text, voice string) domain.Fingerprint {
	return domain.NewFingerprint(text, "speech", voice)
}

// Generate synthesizes s into outDir and measures the result.
func (g *SpeechGenerator) Generate(ctx context.Context, s domain.Sentence, outDir string) (domain.SpeechAsset, error) {
	chain := make([]Candidate, 0, len(g.providers))
	for _, p := range g.providers {
		p := p
		chain = append(chain, Candidate{
			Name: p.Name(),
			Call: func(ctx context.Context) (string, error) {
				return p.Synthesize(ctx, s.Text, g.voice, outDir)
			},
		})
	}

	path, err := g.gen.Generate(ctx, SpeechFingerprint(s.Text, g.voice), outDir, chain)
	if err != nil {
		return domain.SpeechAsset{}, err
	}
	d, err := g.probe.Duration(ctx, path)
	if err != nil {
		return domain.SpeechAsset{}, fmt.Errorf("measure speech: %w", err)
	}
	return domain.SpeechAsset{Sentence: s, Path: path, Duration: d}, nil
}
