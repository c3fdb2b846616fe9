package generate

import (
	"context"
	"strconv"

	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/provider"
)

// ImageGenerator renders one still per image prompt.
type ImageGenerator struct {
	gen           *Generator
	providers     []provider.ImageProvider
	width, height int
	style         string
}

func NewImageGenerator(c Cache, probe provider.MediaProbe, policy Policy, providers []provider.ImageProvider, width, height int, style string) *ImageGenerator {
	return &ImageGenerator{
		gen:       NewGenerator(domain.AssetImage, c, probe, policy),
		providers: providers,
		width:     width,
		height:    height,
		style:     style,
	}
}

// ImageFingerprint keys an image by prompt, style and size.
func ImageFingerprint(prompt, style string, width, height int) domain.Fingerprint {
	return domain.NewFingerprint(prompt, "image", style, strconv.Itoa(width)+"x"+strconv.Itoa(height))
}

// Generate renders prompt into outDir.
func (g *ImageGenerator) Generate(ctx context.Context, prompt, outDir string) (domain.VisualAsset, error) {
	req := provider.ImageRequest{
		Prompt: provider.StyledPrompt(prompt, g.style),
		Width:  g.width,
		Height: g.height,
		Style:  g.style,
	}
	chain := make([]Candidate, 0, len(g.providers))
	for _, p := range g.providers {
		p := p
		chain = append(chain, Candidate{
			Name: p.Name(),
			Call: func(ctx context.Context) (string, error) {
				return p.Synthesize(ctx, req, outDir)
			},
		})
	}

	path, err := g.gen.Generate(ctx, ImageFingerprint(prompt, g.style, g.width, g.height), outDir, chain)
	if err != nil {
		return domain.VisualAsset{}, err
	}
	return domain.VisualAsset{Kind: domain.VisualImage, Path: path}, nil
}
