package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
	"github.com/timmy/narrator/internal/provider"
	"github.com/timmy/narrator/internal/render"
	"github.com/timmy/narrator/internal/storage"
	"github.com/timmy/narrator/internal/subtitle"
	"github.com/timmy/narrator/internal/timeline"
	"golang.org/x/sync/errgroup"
)

// Segmenter splits a script into sentences.
type Segmenter interface {
	Segment(text string, minChars int) []domain.Sentence
}

// Writer is the language model surface the engine needs.
type Writer interface {
	Script(ctx context.Context, mode domain.JobMode, prompt string) (string, error)
	SearchTerms(ctx context.Context, script string, max int) ([]string, error)
	ImagePrompts(ctx context.Context, sentences []string, style string) ([]string, error)
}

// Speaker narrates one sentence into outDir.
type Speaker interface {
	Generate(ctx context.Context, s domain.Sentence, outDir string) (domain.SpeechAsset, error)
}

// Painter renders one image prompt into outDir.
type Painter interface {
	Generate(ctx context.Context, prompt, outDir string) (domain.VisualAsset, error)
}

// Renderer produces the final video and its preview.
type Renderer interface {
	Render(ctx context.Context, in render.Input) error
	Preview(ctx context.Context, video, gif string) error
}

// SceneStore remembers image prompts per sentence.
type SceneStore interface {
	Find(ctx context.Context, sentence, style string) (*domain.Scene, error)
	Save(ctx context.Context, sentence, style, prompt string) error
}

// Deps wires the engine's collaborators. Speakers and Painters build a
// generator for a voice or style; Scenes, Music and Storage may be nil.
type Deps struct {
	Segmenter Segmenter
	Writer    Writer
	Speakers  func(voice string) Speaker
	Painters  func(style string) Painter
	Stock     provider.StockVideoProvider
	Clips     provider.ResourceFetcher
	Music     provider.ResourceFetcher
	Probe     provider.MediaProbe
	Renderer  Renderer
	Scenes    SceneStore
	Storage   storage.ObjectStorage
}

// Engine runs one narration job end to end.
type Engine struct {
	cfg  *config.Config
	deps Deps
}

func NewEngine(cfg *config.Config, deps Deps) *Engine {
	return &Engine{cfg: cfg, deps: deps}
}

// Output is what a finished job produced.
type Output struct {
	Video      string
	Preview    string
	VideoURL   string
	PreviewURL string
	Plan       *timeline.Plan
}

// Run executes job. The first failing unit aborts the job; the returned
// error is a *domain.StageError naming the stage and unit.
func (e *Engine) Run(ctx context.Context, job *domain.Job) (*Output, error) {
	ctx = logger.SetJobID(ctx, job.ID)
	ctx = logger.SetComponent(ctx, "engine")
	start := time.Now()

	if !job.Mode.Valid() {
		return nil, domain.NewStageError(domain.StageScript, "", domain.Configurationf("unknown mode %q", job.Mode))
	}
	dir := filepath.Join(e.cfg.Job.WorkDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}

	script, err := e.script(ctx, job)
	if err != nil {
		return nil, domain.NewStageError(domain.StageScript, "", err)
	}

	sentences := e.deps.Segmenter.Segment(script, e.minChars(job.Mode))
	if len(sentences) == 0 {
		return nil, domain.NewStageError(domain.StageSegment, "", domain.Configurationf("script has no sentences"))
	}
	logger.With(nil).WithCount(len(sentences)).Info(ctx, "script segmented")

	style := job.ImageStyle
	if style == "" {
		style = e.cfg.Image.Style
	}

	// Visual inputs are settled before any per-sentence work so a
	// mismatch fails the job without spending provider calls.
	var prompts []string
	var pool []domain.VisualAsset
	switch job.Mode {
	case domain.JobModeStory:
		prompts, err = e.imagePrompts(ctx, sentences, style)
		if err != nil {
			return nil, domain.NewStageError(domain.StagePrompts, "", err)
		}
	case domain.JobModeReels:
		pool, err = e.stockPool(ctx, job, script, filepath.Join(dir, "videos"))
		if err != nil {
			return nil, err
		}
	}

	speech, images, err := e.generate(ctx, job, sentences, prompts, style, dir)
	if err != nil {
		return nil, err
	}

	durations := make([]float64, len(speech))
	paths := make([]string, len(speech))
	for i, s := range speech {
		durations[i] = s.Duration
		paths[i] = s.Path
	}
	total := timeline.Sum(durations)

	var segments []domain.TimelineSegment
	if job.Mode == domain.JobModeStory {
		segments, err = timeline.FromImages(images, durations)
	} else {
		asm := timeline.NewAssembler(e.cfg.Job.MaxSegmentDuration, timeline.FileDuplicator{Dir: filepath.Join(dir, "duplicates")})
		segments, err = asm.Assemble(total, pool)
	}
	if err != nil {
		return nil, domain.NewStageError(domain.StageTimeline, "", err)
	}
	if got := timeline.Total(segments); math.Abs(got-total) > timeline.Epsilon {
		return nil, domain.NewStageError(domain.StageTimeline, "",
			domain.Consistencyf("visuals cover %.3fs of %.3fs narration", got, total))
	}

	captions, err := subtitle.Build(domain.Texts(sentences), durations)
	if err != nil {
		return nil, domain.NewStageError(domain.StageSubtitle, "", err)
	}
	captions = subtitle.Wrap(captions, e.cfg.Job.SubtitleMaxChars)
	srtPath := filepath.Join(dir, "subtitles.srt")
	if err := subtitle.WriteSRT(srtPath, captions); err != nil {
		return nil, domain.NewStageError(domain.StageSubtitle, "", err)
	}

	plan := &timeline.Plan{
		JobID:     job.ID,
		Mode:      job.Mode,
		Total:     total,
		Sentences: domain.Texts(sentences),
		Speech:    paths,
		Segments:  segments,
		Captions:  captions,
	}
	if err := timeline.WriteManifest(filepath.Join(dir, "plan.yaml"), plan); err != nil {
		return nil, domain.NewStageError(domain.StageTimeline, "", err)
	}

	out := &Output{
		Video:   filepath.Join(dir, job.ID+".mp4"),
		Preview: filepath.Join(dir, job.ID+".gif"),
		Plan:    plan,
	}
	if err := e.render(ctx, job, dir, plan, srtPath, out); err != nil {
		return nil, domain.NewStageError(domain.StageRender, "", err)
	}

	if !e.cfg.Job.KeepSpeech {
		if err := os.RemoveAll(filepath.Join(dir, "speech")); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("speech cleanup failed")
		}
	}

	if e.deps.Storage != nil {
		urls, err := storage.PublishAll(ctx, e.deps.Storage, job.ID, out.Video, out.Preview)
		if err != nil {
			return nil, domain.NewStageError(domain.StagePublish, "", err)
		}
		out.VideoURL, out.PreviewURL = urls[0], urls[1]
	}

	job.SentenceCount = len(sentences)
	job.SegmentCount = len(segments)
	job.DurationSeconds = total
	logger.With(logger.Fields{
		"sentences": len(sentences),
		"segments":  len(segments),
		"total":     total,
	}).WithSince(start).Info(ctx, "job finished")
	return out, nil
}

func (e *Engine) minChars(mode domain.JobMode) int {
	if mode == domain.JobModeReels {
		return e.cfg.Job.ReelsMinChars
	}
	return e.cfg.Job.StoryMinChars
}

func (e *Engine) script(ctx context.Context, job *domain.Job) (string, error) {
	if s := strings.TrimSpace(job.Script); s != "" {
		return s, nil
	}
	if strings.TrimSpace(job.Prompt) == "" {
		return "", domain.Configurationf("job has neither script nor prompt")
	}
	if e.deps.Writer == nil {
		return "", domain.Configurationf("no language model configured for prompt %q", job.Prompt)
	}
	return e.deps.Writer.Script(ctx, job.Mode, job.Prompt)
}

// imagePrompts reuses stored scenes when every sentence has an exact
// match, otherwise asks the writer for a fresh set.
func (e *Engine) imagePrompts(ctx context.Context, sentences []domain.Sentence, style string) ([]string, error) {
	texts := domain.Texts(sentences)
	if prompts, ok := e.storedPrompts(ctx, texts, style); ok {
		logger.With(nil).WithCount(len(prompts)).Info(ctx, "reusing stored scenes")
		return prompts, nil
	}
	if e.deps.Writer == nil {
		return nil, domain.Configurationf("no language model configured for image prompts")
	}
	prompts, err := e.deps.Writer.ImagePrompts(ctx, texts, style)
	if err != nil {
		return nil, err
	}
	if len(prompts) != len(texts) {
		return nil, domain.Consistencyf("%d image prompts for %d sentences", len(prompts), len(texts))
	}
	if e.deps.Scenes != nil {
		for i, text := range texts {
			if err := e.deps.Scenes.Save(ctx, text, style, prompts[i]); err != nil {
				logger.FromContext(ctx).WithError(err).Warn("save scene failed")
			}
		}
	}
	return prompts, nil
}

func (e *Engine) storedPrompts(ctx context.Context, texts []string, style string) ([]string, bool) {
	if e.deps.Scenes == nil {
		return nil, false
	}
	prompts := make([]string, len(texts))
	for i, text := range texts {
		scene, err := e.deps.Scenes.Find(ctx, text, style)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("scene lookup failed")
			return nil, false
		}
		if scene == nil {
			return nil, false
		}
		prompts[i] = scene.ImagePrompt
	}
	return prompts, true
}

// generate narrates every sentence and, in story mode, paints its image.
// Speech and image for a sentence run concurrently; the call returns after
// every unit has finished or the first one failed.
func (e *Engine) generate(ctx context.Context, job *domain.Job, sentences []domain.Sentence, prompts []string, style, dir string) ([]domain.SpeechAsset, []domain.VisualAsset, error) {
	voice := job.Voice
	if voice == "" {
		voice = e.cfg.Speech.Voice
	}
	speaker := e.deps.Speakers(voice)
	var painter Painter
	if prompts != nil {
		painter = e.deps.Painters(style)
	}

	speechDir := filepath.Join(dir, "speech")
	imageDir := filepath.Join(dir, "images")
	speech := make([]domain.SpeechAsset, len(sentences))
	var images []domain.VisualAsset
	if painter != nil {
		images = make([]domain.VisualAsset, len(sentences))
	}

	g, gctx := errgroup.WithContext(ctx)
	if n := e.cfg.Job.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	for i, s := range sentences {
		i, s := i, s
		sctx := logger.SetSentence(gctx, s.Index)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return domain.NewStageError(domain.StageSpeech, domain.SentenceUnit(s.Index), err)
			}
			asset, err := speaker.Generate(sctx, s, speechDir)
			if err != nil {
				return domain.NewStageError(domain.StageSpeech, domain.SentenceUnit(s.Index), err)
			}
			speech[i] = asset
			return nil
		})
		if painter != nil {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return domain.NewStageError(domain.StageImage, domain.SentenceUnit(s.Index), err)
				}
				asset, err := painter.Generate(sctx, prompts[i], imageDir)
				if err != nil {
					return domain.NewStageError(domain.StageImage, domain.SentenceUnit(s.Index), err)
				}
				images[i] = asset
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return speech, images, nil
}

func (e *Engine) render(ctx context.Context, job *domain.Job, dir string, plan *timeline.Plan, srtPath string, out *Output) error {
	in := render.Input{
		Segments:  plan.Segments,
		Speech:    plan.Speech,
		Subtitles: srtPath,
		Output:    out.Video,
	}
	if job.BackgroundAudioURL != "" && e.deps.Music != nil {
		music, err := e.deps.Music.Fetch(ctx, job.BackgroundAudioURL, filepath.Join(dir, "audio"))
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("background audio unavailable, rendering without it")
		} else {
			in.Music = music
		}
	}
	if err := e.deps.Renderer.Render(ctx, in); err != nil {
		return err
	}
	return e.deps.Renderer.Preview(ctx, out.Video, out.Preview)
}
