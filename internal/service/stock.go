package service

import (
	"context"
	"strings"

	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
	"golang.org/x/sync/errgroup"
)

// stockPool resolves the reels clip pool: explicit video paths when the job
// has them, otherwise one stock clip per LLM search term.
func (e *Engine) stockPool(ctx context.Context, job *domain.Job, script, dir string) ([]domain.VisualAsset, error) {
	sources := dedupe(job.VideoPaths)
	if len(sources) == 0 {
		urls, err := e.searchClips(ctx, script)
		if err != nil {
			return nil, domain.NewStageError(domain.StageStock, "", err)
		}
		sources = urls
	}
	if len(sources) == 0 {
		return nil, domain.NewStageError(domain.StageStock, "", domain.Configurationf("no stock clips found"))
	}

	paths := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if n := e.cfg.Job.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if !isRemote(src) {
				paths[i] = src
				return nil
			}
			p, err := e.deps.Clips.Fetch(gctx, src, dir)
			if err != nil {
				return domain.NewStageError(domain.StageStock, src, err)
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(paths))
	pool := make([]domain.VisualAsset, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		d, err := e.deps.Probe.Duration(ctx, p)
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField("clip", p).Warn("skipping unreadable clip")
			continue
		}
		pool = append(pool, domain.VisualAsset{Kind: domain.VisualVideo, Path: p, SourceDuration: d})
	}
	if len(pool) == 0 {
		return nil, domain.NewStageError(domain.StageStock, "", domain.Configurationf("no usable stock clips"))
	}
	logger.With(nil).WithCount(len(pool)).Info(ctx, "stock pool ready")
	return pool, nil
}

// dedupe drops repeated sources, keeping first occurrences in order.
func dedupe(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}

// searchClips takes the first unseen result of each search term until
// the configured number of videos is reached.
func (e *Engine) searchClips(ctx context.Context, script string) ([]string, error) {
	if e.deps.Writer == nil || e.deps.Stock == nil {
		return nil, domain.Configurationf("stock search needs a language model and a stock provider")
	}
	terms, err := e.deps.Writer.SearchTerms(ctx, script, e.cfg.Stock.MaxTerms)
	if err != nil {
		return nil, err
	}

	results := make([][]string, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	if n := e.cfg.Job.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	for i, term := range terms {
		i, term := i, term
		g.Go(func() error {
			urls, err := e.deps.Stock.Search(gctx, term, e.cfg.Stock.MinDuration, e.cfg.Stock.Limit)
			if err != nil {
				logger.FromContext(gctx).WithError(err).WithField("term", term).Warn("stock search failed")
				return nil
			}
			results[i] = urls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	max := e.cfg.Stock.MaxVideos
	seen := map[string]bool{}
	var picked []string
	for _, urls := range results {
		if max > 0 && len(picked) >= max {
			break
		}
		for _, u := range urls {
			if !seen[u] {
				seen[u] = true
				picked = append(picked, u)
				break
			}
		}
	}
	return picked, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
