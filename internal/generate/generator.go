package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/narrator/internal/cache"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
	"github.com/timmy/narrator/internal/provider"
)

// Cache is the artifact store a Generator consults before any provider call.
type Cache interface {
	Lookup(ctx context.Context, fp domain.Fingerprint) (string, bool, error)
	Store(ctx context.Context, fp domain.Fingerprint, src string) (string, error)
	Invalidate(ctx context.Context, fp domain.Fingerprint) error
}

// Generator produces one artifact per fingerprint: cached if a valid copy
// exists, otherwise through the policy's provider chain.
type Generator struct {
	kind   domain.AssetKind
	cache  Cache
	probe  provider.MediaProbe
	policy Policy
}

func NewGenerator(kind domain.AssetKind, c Cache, probe provider.MediaProbe, policy Policy) *Generator {
	return &Generator{kind: kind, cache: c, probe: probe, policy: policy}
}

// Generate returns a path inside outDir holding the artifact for fp.
func (g *Generator) Generate(ctx context.Context, fp domain.Fingerprint, outDir string, chain []Candidate) (string, error) {
	ctx = logger.WithField(ctx, logger.FieldFingerprint, fp.Short())
	start := time.Now()

	if path, ok := g.fromCache(ctx, fp, outDir); ok {
		return path, nil
	}

	res, err := g.policy.Run(ctx, chain, g.validate)
	if err != nil {
		return "", err
	}

	// Fallback results are cached the same way as primary ones.
	if _, err := g.cache.Store(ctx, fp, res.Path); err != nil {
		return "", fmt.Errorf("cache %s artifact: %w", g.kind, err)
	}

	logger.With(logger.Fields{
		logger.FieldProvider: res.Provider,
		logger.FieldCount:    res.Calls,
	}).WithAttempt(res.Attempt).WithSince(start).Info(ctx, "generated %s", g.kind)
	return res.Path, nil
}

// fromCache returns a checked-out copy of a valid cached artifact. Invalid
// entries are dropped and reported as a miss.
func (g *Generator) fromCache(ctx context.Context, fp domain.Fingerprint, outDir string) (string, bool) {
	cached, ok, err := g.cache.Lookup(ctx, fp)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("cache lookup failed")
		return "", false
	}
	if !ok {
		logger.CtxDebug(ctx, "%s cache miss", g.kind)
		return "", false
	}
	if !g.probe.DecodeCheck(ctx, cached) {
		logger.CtxWarn(ctx, "%s cache entry invalid, regenerating", g.kind)
		if err := g.cache.Invalidate(ctx, fp); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("cache invalidate failed")
		}
		return "", false
	}
	path, err := cache.Checkout(cached, outDir)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("cache checkout failed")
		return "", false
	}
	logger.CtxInfo(ctx, "%s cache hit", g.kind)
	return path, true
}

func (g *Generator) validate(ctx context.Context, path string) error {
	if !g.probe.DecodeCheck(ctx, path) {
		return fmt.Errorf("%s does not decode", path)
	}
	return nil
}
