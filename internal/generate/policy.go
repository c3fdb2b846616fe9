// Package generate produces speech and image artifacts behind a content
// addressed cache, retrying and falling back across providers.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 4 * time.Second
)

// Candidate is one provider call in a fallback chain. Call writes an
// artifact and returns its path.
type Candidate struct {
	Name string
	Call func(ctx context.Context) (string, error)
}

// Validator checks a freshly produced artifact.
type Validator func(ctx context.Context, path string) error

// Policy bounds how hard a unit is retried.
//
// Each attempt walks the chain in order: primary first, then every
// fallback once. The first candidate whose artifact validates wins. A walk
// where every candidate fails consumes one attempt, then the policy waits
// Delay before the next walk. Fallbacks therefore never eat into the
// primary's budget.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Result reports which candidate produced the artifact.
type Result struct {
	Path     string
	Provider string
	Attempt  int
	Calls    int
}

// Run executes the chain until a candidate succeeds or the attempts run
// out. Exhaustion returns an error wrapping domain.ErrExhausted and the
// last provider error.
func (p Policy) Run(ctx context.Context, chain []Candidate, validate Validator) (Result, error) {
	if len(chain) == 0 {
		return Result{}, domain.Configurationf("no providers configured")
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		lastErr error
		calls   int
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Calls: calls}, err
		}
		for i, c := range chain {
			calls++
			path, err := p.try(ctx, c, validate)
			if err == nil {
				if i > 0 {
					logger.With(logger.Fields{logger.FieldProvider: c.Name}).
						WithAttempt(attempt).Info(ctx, "fallback provider succeeded")
				}
				return Result{Path: path, Provider: c.Name, Attempt: attempt, Calls: calls}, nil
			}
			lastErr = err
			logger.With(logger.Fields{logger.FieldProvider: c.Name}).
				WithAttempt(attempt).Warn(ctx, "provider call failed: %v", err)
			if ctx.Err() != nil {
				return Result{Calls: calls}, ctx.Err()
			}
		}
		if attempt < attempts {
			if err := sleep(ctx, p.Delay); err != nil {
				return Result{Calls: calls}, err
			}
		}
	}
	return Result{Calls: calls}, fmt.Errorf("%w after %d attempts: %w", domain.ErrExhausted, attempts, lastErr)
}

// try runs one candidate and validates its output. Invalid artifacts are
// removed so they never reach the cache.
func (p Policy) try(ctx context.Context, c Candidate, validate Validator) (string, error) {
	path, err := c.Call(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrTransientProvider) {
			err = fmt.Errorf("%s: %w: %w", c.Name, domain.ErrTransientProvider, err)
		}
		return "", err
	}
	if validate != nil {
		if verr := validate(ctx, path); verr != nil {
			os.Remove(path)
			return "", fmt.Errorf("%s: %w: %v", c.Name, domain.ErrValidation, verr)
		}
	}
	return path, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
