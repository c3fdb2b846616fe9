// Package timeline lays visual assets out against the narration track.
package timeline

import (
	"math"

	"github.com/timmy/narrator/internal/domain"
)

// Epsilon is the tolerance for duration bookkeeping, in seconds.
const Epsilon = 1e-3

// Duplicator returns an independent instance of a clip so that repeated
// uses of one source never alias in the renderer.
type Duplicator interface {
	Duplicate(clip domain.VisualAsset) (domain.VisualAsset, error)
}

// Assembler fills a narration track with visual segments.
type Assembler struct {
	MaxSegment float64
	Dup        Duplicator
}

func NewAssembler(maxSegment float64, dup Duplicator) *Assembler {
	return &Assembler{MaxSegment: maxSegment, Dup: dup}
}

// FromImages maps image i onto sentence i, holding it for durations[i].
func FromImages(images []domain.VisualAsset, durations []float64) ([]domain.TimelineSegment, error) {
	if len(images) == 0 {
		return nil, domain.Configurationf("no images to assemble")
	}
	if len(images) != len(durations) {
		return nil, domain.Consistencyf("%d images for %d speech durations", len(images), len(durations))
	}
	out := make([]domain.TimelineSegment, len(images))
	var start float64
	for i, img := range images {
		img.TargetDuration = durations[i]
		out[i] = domain.TimelineSegment{Visual: img, Start: start, Duration: durations[i]}
		start += durations[i]
	}
	return out, nil
}

// Assemble walks pool round-robin, cutting each clip to at most MaxSegment
// and to what remains of total, until the segments cover total exactly.
// Clips without a positive duration are skipped. An empty pool is a
// configuration error.
func (a *Assembler) Assemble(total float64, pool []domain.VisualAsset) ([]domain.TimelineSegment, error) {
	if a.MaxSegment <= 0 {
		return nil, domain.Configurationf("max segment duration must be positive, got %v", a.MaxSegment)
	}
	clips := make([]domain.VisualAsset, 0, len(pool))
	for _, c := range pool {
		if c.SourceDuration > 0 {
			clips = append(clips, c)
		}
	}
	if len(clips) == 0 {
		return nil, domain.Configurationf("visual pool is empty")
	}
	if total <= 0 {
		return nil, nil
	}

	var (
		out  []domain.TimelineSegment
		cum  float64
		used = make(map[string]bool, len(clips))
	)
	for i := 0; total-cum > 1e-9; i++ {
		clip := clips[i%len(clips)]
		take := math.Min(a.MaxSegment, math.Min(total-cum, clip.SourceDuration))

		inst := clip
		if used[clip.Path] && a.Dup != nil {
			dup, err := a.Dup.Duplicate(clip)
			if err != nil {
				return nil, domain.NewStageError(domain.StageTimeline, clip.Path, err)
			}
			inst = dup
		}
		used[clip.Path] = true

		inst.TargetDuration = take
		out = append(out, domain.TimelineSegment{Visual: inst, Start: cum, Duration: take})
		cum += take
	}
	return out, nil
}

// Total returns the summed duration of segs.
func Total(segs []domain.TimelineSegment) float64 {
	var t float64
	for _, s := range segs {
		t += s.Duration
	}
	return t
}

// Sum adds durations.
func Sum(durations []float64) float64 {
	var t float64
	for _, d := range durations {
		t += d
	}
	return t
}
