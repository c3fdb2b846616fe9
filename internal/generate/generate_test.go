package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/narrator/internal/cache"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/provider"
)

// fakeProbe treats files containing "bad" as corrupt and reports a
// duration equal to the file size.
type fakeProbe struct{}

func (fakeProbe) Duration(_ context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return float64(len(data)), nil
}

func (fakeProbe) DecodeCheck(_ context.Context, path string) bool {
	data, err := os.ReadFile(path)
	return err == nil && len(data) > 0 && string(data) != "bad"
}

// scriptedSpeech returns errors or bodies in order, one per call.
type scriptedSpeech struct {
	name  string
	steps []string
	calls int32
}

func (s *scriptedSpeech) Name() string { return s.name }

func (s *scriptedSpeech) Synthesize(_ context.Context, text, voice, outDir string) (string, error) {
	n := int(atomic.AddInt32(&s.calls, 1)) - 1
	step := "ok"
	if n < len(s.steps) {
		step = s.steps[n]
	}
	if step == "fail" {
		return "", fmt.Errorf("%s: %w: 503", s.name, domain.ErrTransientProvider)
	}
	body := text
	if step == "bad" {
		body = "bad"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, fmt.Sprintf("%s_%d.mp3", s.name, n))
	return path, os.WriteFile(path, []byte(body), 0o644)
}

func newSpeech(t *testing.T, providers ...provider.SpeechProvider) (*SpeechGenerator, *cache.Store) {
	t.Helper()
	store, err := cache.New(t.TempDir(), domain.AssetSpeech, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewSpeechGenerator(store, fakeProbe{}, Policy{MaxAttempts: 3}, "v1", providers), store
}

func TestCacheIdempotence(t *testing.T) {
	ctx := context.Background()
	p := &scriptedSpeech{name: "primary"}
	g, _ := newSpeech(t, p)
	s := domain.NewSentence(0, "Hello there.")

	first, err := g.Generate(ctx, s, t.TempDir())
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	dir := t.TempDir()
	second, err := g.Generate(ctx, s, dir)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	again, err := g.Generate(ctx, s, dir)
	if err != nil {
		t.Fatalf("third Generate() error = %v", err)
	}
	if second.Path == again.Path {
		t.Fatalf("warm cache hits share %q", second.Path)
	}
	if second.Duration != again.Duration {
		t.Fatalf("warm cache copies differ: %v vs %v", second.Duration, again.Duration)
	}
	if p.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", p.calls)
	}
	if first.Duration != second.Duration || second.Duration != float64(len("Hello there.")) {
		t.Fatalf("durations = %v, %v", first.Duration, second.Duration)
	}
}

func TestWarmCacheRepeatedSentenceConcurrent(t *testing.T) {
	ctx := context.Background()
	p := &scriptedSpeech{name: "primary"}
	g, _ := newSpeech(t, p)
	text := strings.Repeat("Yes. ", 20000)
	if _, err := g.Generate(ctx, domain.NewSentence(0, text), t.TempDir()); err != nil {
		t.Fatalf("warm-up Generate() error = %v", err)
	}

	outDir := t.TempDir()
	const n = 8
	assets := make([]domain.SpeechAsset, n)
	errs := make([]error, n)
	for round := 0; round < 5; round++ {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assets[i], errs[i] = g.Generate(ctx, domain.NewSentence(i, text), outDir)
			}(i)
		}
		wg.Wait()

		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			if errs[i] != nil {
				t.Fatalf("Generate() error = %v", errs[i])
			}
			if assets[i].Duration != float64(len(text)) {
				t.Fatalf("sentence %d duration = %v, want %d", i, assets[i].Duration, len(text))
			}
			if seen[assets[i].Path] {
				t.Fatalf("sentences share %s", assets[i].Path)
			}
			seen[assets[i].Path] = true
		}
	}
	if p.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", p.calls)
	}
}

func TestFailsTwiceThenSucceeds(t *testing.T) {
	p := &scriptedSpeech{name: "primary", steps: []string{"fail", "fail", "ok"}}
	g, _ := newSpeech(t, p)

	asset, err := g.Generate(context.Background(), domain.NewSentence(0, "Third time lucky."), t.TempDir())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.calls != 3 {
		t.Fatalf("provider calls = %d, want 3", p.calls)
	}
	if _, err := os.Stat(asset.Path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestExhaustion(t *testing.T) {
	p := &scriptedSpeech{name: "primary", steps: []string{"fail", "fail", "fail", "ok"}}
	g, store := newSpeech(t, p)

	_, err := g.Generate(context.Background(), domain.NewSentence(0, "Never."), t.TempDir())
	if !errors.Is(err, domain.ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, domain.ErrTransientProvider) {
		t.Fatalf("error = %v, should carry last provider error", err)
	}
	if p.calls != 3 {
		t.Fatalf("provider calls = %d, want 3", p.calls)
	}
	if entries, _ := store.List(); len(entries) != 0 {
		t.Fatalf("cache has %d entries after failure", len(entries))
	}
}

func TestFallbackDoesNotConsumeAttempts(t *testing.T) {
	primary := &scriptedSpeech{name: "primary", steps: []string{"fail", "fail", "fail"}}
	backup := &scriptedSpeech{name: "backup", steps: []string{"fail", "ok"}}
	g, store := newSpeech(t, primary, backup)

	s := domain.NewSentence(0, "Fallback works.")
	if _, err := g.Generate(context.Background(), s, t.TempDir()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if primary.calls != 2 || backup.calls != 2 {
		t.Fatalf("calls primary=%d backup=%d, want 2 and 2", primary.calls, backup.calls)
	}
	if _, ok, _ := store.Lookup(context.Background(), SpeechFingerprint(s.Text, "v1")); !ok {
		t.Fatal("fallback result was not cached")
	}
}

func TestValidationFailureCountsAsAttempt(t *testing.T) {
	p := &scriptedSpeech{name: "primary", steps: []string{"bad", "ok"}}
	g, _ := newSpeech(t, p)
	out := t.TempDir()

	if _, err := g.Generate(context.Background(), domain.NewSentence(0, "Valid eventually."), out); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", p.calls)
	}
	if _, err := os.Stat(filepath.Join(out, "primary_0.mp3")); !os.IsNotExist(err) {
		t.Fatalf("invalid artifact not removed: %v", err)
	}
}

func TestInvalidCacheEntryIsRegenerated(t *testing.T) {
	ctx := context.Background()
	p := &scriptedSpeech{name: "primary"}
	g, store := newSpeech(t, p)
	s := domain.NewSentence(0, "Corrupted cache.")
	fp := SpeechFingerprint(s.Text, "v1")

	corrupt := filepath.Join(t.TempDir(), "c.mp3")
	os.WriteFile(corrupt, []byte("bad"), 0o644)
	if _, err := store.Store(ctx, fp, corrupt); err != nil {
		t.Fatal(err)
	}

	asset, err := g.Generate(ctx, s, t.TempDir())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", p.calls)
	}
	cached, ok, _ := store.Lookup(ctx, fp)
	if !ok {
		t.Fatal("regenerated artifact not cached")
	}
	data, _ := os.ReadFile(cached)
	if string(data) != s.Text {
		t.Fatalf("cache holds %q", data)
	}
	if asset.Duration != float64(len(s.Text)) {
		t.Fatalf("duration = %v", asset.Duration)
	}
}

func TestPolicyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	chain := []Candidate{{Name: "p", Call: func(context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("boom")
	}}}
	_, err := Policy{MaxAttempts: 3, Delay: time.Hour}.Run(ctx, chain, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPolicyWithoutProviders(t *testing.T) {
	if _, err := DefaultPolicy().Run(context.Background(), nil, nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

type fakeImage struct{ prompts []string }

func (f *fakeImage) Name() string { return "img" }

func (f *fakeImage) Synthesize(_ context.Context, req provider.ImageRequest, outDir string) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	os.MkdirAll(outDir, 0o755)
	path := filepath.Join(outDir, fmt.Sprintf("img_%d.png", len(f.prompts)))
	return path, os.WriteFile(path, []byte("png"), 0o644)
}

func TestImageGeneratorStylesPromptAndCaches(t *testing.T) {
	store, err := cache.New(t.TempDir(), domain.AssetImage, nil)
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeImage{}
	g := NewImageGenerator(store, fakeProbe{}, Policy{MaxAttempts: 1}, []provider.ImageProvider{p}, 64, 64, "Watercolor")

	for i := 0; i < 2; i++ {
		asset, err := g.Generate(context.Background(), "a lighthouse", t.TempDir())
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if asset.Kind != domain.VisualImage {
			t.Fatalf("kind = %q", asset.Kind)
		}
	}
	if len(p.prompts) != 1 || p.prompts[0] != "a lighthouse (Art Style: Watercolor)" {
		t.Fatalf("prompts = %q", p.prompts)
	}
}
