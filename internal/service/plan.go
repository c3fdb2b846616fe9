package service

import (
	"fmt"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/subtitle"
	"github.com/timmy/narrator/internal/timeline"
)

// PlanRequest describes a dry run: a script, the narration length of each
// sentence and, for reels, the clip pool.
type PlanRequest struct {
	Mode      domain.JobMode
	Script    string
	Durations []float64
	Clips     []domain.VisualAsset
}

// BuildPlan segments the script and lays out the timeline and captions
// without calling any provider. Story scenes get placeholder image names.
func BuildPlan(cfg config.JobConfig, seg Segmenter, req PlanRequest) (*timeline.Plan, error) {
	if !req.Mode.Valid() {
		return nil, domain.Configurationf("unknown mode %q", req.Mode)
	}
	minChars := cfg.StoryMinChars
	if req.Mode == domain.JobModeReels {
		minChars = cfg.ReelsMinChars
	}
	sentences := seg.Segment(req.Script, minChars)
	if len(sentences) == 0 {
		return nil, domain.Configurationf("script has no sentences")
	}
	if len(req.Durations) != len(sentences) {
		return nil, domain.Consistencyf("%d durations for %d sentences", len(req.Durations), len(sentences))
	}

	total := timeline.Sum(req.Durations)
	var segments []domain.TimelineSegment
	var err error
	if req.Mode == domain.JobModeStory {
		images := make([]domain.VisualAsset, len(sentences))
		for i := range images {
			images[i] = domain.VisualAsset{Kind: domain.VisualImage, Path: fmt.Sprintf("scene_%03d.png", i)}
		}
		segments, err = timeline.FromImages(images, req.Durations)
	} else {
		segments, err = timeline.NewAssembler(cfg.MaxSegmentDuration, &timeline.VirtualDuplicator{}).Assemble(total, req.Clips)
	}
	if err != nil {
		return nil, err
	}

	captions, err := subtitle.Build(domain.Texts(sentences), req.Durations)
	if err != nil {
		return nil, err
	}
	return &timeline.Plan{
		Mode:      req.Mode,
		Total:     total,
		Sentences: domain.Texts(sentences),
		Segments:  segments,
		Captions:  subtitle.Wrap(captions, cfg.SubtitleMaxChars),
	}, nil
}
