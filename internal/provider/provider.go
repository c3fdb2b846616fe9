// Package provider holds the generation backends the pipeline talks to and
// the interfaces the core depends on.
package provider

import (
	"context"
	"fmt"

	"github.com/timmy/narrator/internal/domain"
)

// SpeechProvider turns text into an audio file written under outDir.
type SpeechProvider interface {
	Name() string
	Synthesize(ctx context.Context, text, voice, outDir string) (string, error)
}

// ImageRequest describes one image to synthesize.
type ImageRequest struct {
	Prompt string
	Width  int
	Height int
	Style  string
}

// ImageProvider turns a prompt into an image file written under outDir.
type ImageProvider interface {
	Name() string
	Synthesize(ctx context.Context, req ImageRequest, outDir string) (string, error)
}

// StockVideoProvider searches a stock footage library and returns download
// URLs, best match first.
type StockVideoProvider interface {
	Search(ctx context.Context, query string, minDuration, limit int) ([]string, error)
}

// ResourceFetcher downloads a URL into destDir and returns the local path.
type ResourceFetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
}

// MediaProbe measures and validates media files.
type MediaProbe interface {
	Duration(ctx context.Context, path string) (float64, error)
	DecodeCheck(ctx context.Context, path string) bool
}

// transient marks err as a recoverable failure of a single provider call.
func transient(name string, err error) error {
	return fmt.Errorf("%s: %w: %v", name, domain.ErrTransientProvider, err)
}
