package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/narrator/internal/cache"
	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/generate"
	"github.com/timmy/narrator/internal/llm"
	"github.com/timmy/narrator/internal/logger"
	"github.com/timmy/narrator/internal/media"
	"github.com/timmy/narrator/internal/provider"
	"github.com/timmy/narrator/internal/render"
	"github.com/timmy/narrator/internal/repository"
	"github.com/timmy/narrator/internal/segment"
	"github.com/timmy/narrator/internal/storage"
	"gorm.io/gorm"
)

// Cache bucket names under cache.root.
const (
	BucketSpeech = "speech"
	BucketImages = "images"
	BucketVideos = "videos"
	BucketLLM    = "llm"
	BucketAudios = "audios"
)

// BuildEngine wires an Engine from configuration. db may be nil, which
// disables the cache index and scene reuse. When publishing is enabled the
// bucket is checked with ctx.
func BuildEngine(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var index cache.Index
	var scenes SceneStore
	if db != nil {
		if cfg.Cache.UseIndex {
			index = repository.NewCacheEntryRepository(db)
		}
		scenes = repository.NewSceneRepository(db)
	}

	speechCache, err := cache.New(cfg.Cache.Dir(BucketSpeech), domain.AssetSpeech, index)
	if err != nil {
		return nil, err
	}
	imageCache, err := cache.New(cfg.Cache.Dir(BucketImages), domain.AssetImage, index)
	if err != nil {
		return nil, err
	}
	llmCache, err := cache.New(cfg.Cache.Dir(BucketLLM), domain.AssetLLM, index)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	speakers, err := registry.SpeechChain(cfg.Speech)
	if err != nil {
		return nil, err
	}
	painters, err := registry.ImageChain(cfg.Image)
	if err != nil {
		return nil, err
	}

	clips, err := provider.NewFetcher(cfg.Cache.Dir(BucketVideos))
	if err != nil {
		return nil, err
	}
	music, err := provider.NewFetcher(cfg.Cache.Dir(BucketAudios))
	if err != nil {
		return nil, err
	}

	seg, err := segment.New()
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}

	probe := media.NewProbe(cfg.Render.FFprobe)
	policy := generate.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}
	if policy.MaxAttempts <= 0 {
		policy = generate.DefaultPolicy()
	}

	deps := Deps{
		Segmenter: seg,
		Speakers: func(voice string) Speaker {
			return generate.NewSpeechGenerator(speechCache, probe, policy, voice, speakers)
		},
		Painters: func(style string) Painter {
			return generate.NewImageGenerator(imageCache, probe, policy, painters, cfg.Image.Width, cfg.Image.Height, style)
		},
		Clips:    clips,
		Music:    music,
		Probe:    probe,
		Renderer: render.New(cfg.Render),
		Scenes:   scenes,
	}

	writer, err := llm.New(cfg.LLM, llmCache)
	switch {
	case err == nil:
		deps.Writer = writer
	case errors.Is(err, domain.ErrConfiguration):
		logger.GetDefault().WithError(err).Warn("language model disabled, jobs need an explicit script")
	default:
		return nil, err
	}

	if cfg.Stock.APIKey != "" {
		deps.Stock = provider.NewPexels(cfg.Stock)
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if store != nil {
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("check bucket: %w", err)
		}
		deps.Storage = store
	}

	return NewEngine(cfg, deps), nil
}
