package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// Probe measures durations and validates generated artifacts.
type Probe struct {
	FFprobe string
}

func NewProbe(ffprobe string) *Probe {
	return &Probe{FFprobe: ffprobe}
}

// Duration returns the playable length of an audio or video file.
func (p *Probe) Duration(ctx context.Context, path string) (float64, error) {
	res, err := Inspect(ctx, p.FFprobe, path)
	if err != nil {
		return 0, err
	}
	d := res.DurationSeconds()
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s has no measurable duration", domain.ErrValidation, filepath.Base(path))
	}
	return d, nil
}

// DecodeCheck reports whether path holds a usable artifact: images must
// decode fully, audio and video must probe to a positive duration.
func (p *Probe) DecodeCheck(ctx context.Context, path string) bool {
	err := p.check(ctx, path)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("path", path).Warn("artifact failed validation")
	}
	return err == nil
}

func (p *Probe) check(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty file")
	}
	if imageExts[strings.ToLower(filepath.Ext(path))] {
		return DecodeImage(path)
	}
	res, err := Inspect(ctx, p.FFprobe, path)
	if err != nil {
		return err
	}
	if !res.HasStream("audio") && !res.HasStream("video") {
		return fmt.Errorf("%w: %s has no audio or video stream", domain.ErrValidation, filepath.Base(path))
	}
	if res.DurationSeconds() <= 0 {
		return fmt.Errorf("%w: %s has no measurable duration", domain.ErrValidation, filepath.Base(path))
	}
	return nil
}

// DecodeImage decodes the whole image, catching truncated downloads that
// still carry a valid header.
func DecodeImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("decode %s: empty image", filepath.Base(path))
	}
	return nil
}
