package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/timmy/narrator/internal/domain"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestStoreLookupInvalidate(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), domain.AssetSpeech, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := domain.NewFingerprint("Hello world.", "voice")

	if _, ok, err := s.Lookup(ctx, fp); err != nil || ok {
		t.Fatalf("Lookup() on empty cache = %v, %v", ok, err)
	}

	src := writeFile(t, t.TempDir(), "speech.MP3", "audio")
	stored, err := s.Store(ctx, fp, src)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if filepath.Dir(stored) != s.Dir() || !strings.HasSuffix(stored, ".mp3") {
		t.Fatalf("stored path = %q", stored)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("Store() must copy, source is gone: %v", err)
	}

	got, ok, err := s.Lookup(ctx, fp)
	if err != nil || !ok || got != stored {
		t.Fatalf("Lookup() = %q, %v, %v; want %q", got, ok, err, stored)
	}

	// Lookup ignores case in file names.
	upper := domain.Fingerprint(strings.ToUpper(fp.String()))
	if _, ok, _ := s.Lookup(ctx, upper); !ok {
		t.Fatal("Lookup() with upper-case fingerprint missed")
	}

	if err := s.Invalidate(ctx, fp); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := s.Lookup(ctx, fp); ok {
		t.Fatal("Lookup() hit after Invalidate()")
	}
}

func TestStoreKeepsOneArtifactPerFingerprint(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), domain.AssetImage, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := domain.NewFingerprint("a red fox", "1024", "1024")
	src := t.TempDir()

	if _, err := s.Store(ctx, fp, writeFile(t, src, "a.png", "png")); err != nil {
		t.Fatalf("Store(png) error = %v", err)
	}
	last, err := s.Store(ctx, fp, writeFile(t, src, "a.webp", "webp"))
	if err != nil {
		t.Fatalf("Store(webp) error = %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Path != last || entries[0].Fingerprint != fp {
		t.Fatalf("List() = %+v, want single entry %q", entries, last)
	}
}

func TestConcurrentStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), domain.AssetSpeech, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := domain.NewFingerprint("shared sentence")
	body := strings.Repeat("x", 1<<16)
	src := writeFile(t, t.TempDir(), "s.mp3", body)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.Store(ctx, fp, src); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			p, ok, err := s.Lookup(ctx, fp)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				data, err := os.ReadFile(p)
				if err == nil && len(data) != len(body) {
					errs <- os.ErrInvalid
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access: %v", err)
	}
}

type memIndex struct {
	mu      sync.Mutex
	entries map[domain.Fingerprint]domain.CacheEntry
	gets    int
}

func (m *memIndex) Get(_ context.Context, kind domain.AssetKind, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	e, ok := m.entries[fp]
	if !ok || e.Kind != kind {
		return nil, nil
	}
	return &e, nil
}

func (m *memIndex) Upsert(_ context.Context, e *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Fingerprint] = *e
	return nil
}

func (m *memIndex) Delete(_ context.Context, fp domain.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fp)
	return nil
}

func TestIndexBackedLookup(t *testing.T) {
	ctx := context.Background()
	idx := &memIndex{entries: map[domain.Fingerprint]domain.CacheEntry{}}
	s, err := New(t.TempDir(), domain.AssetImage, idx)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := domain.NewFingerprint("mountain at dawn")
	stored, err := s.Store(ctx, fp, writeFile(t, t.TempDir(), "m.png", "png"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if idx.entries[fp].Path != stored {
		t.Fatalf("index path = %q, want %q", idx.entries[fp].Path, stored)
	}

	// A stale index row whose file is gone falls back to the scan.
	os.Remove(stored)
	if _, ok, _ := s.Lookup(ctx, fp); ok {
		t.Fatal("Lookup() hit on missing file")
	}
	if _, ok := idx.entries[fp]; ok {
		t.Fatal("stale index row not removed")
	}
}

func TestCheckout(t *testing.T) {
	src := writeFile(t, t.TempDir(), "abc.mp3", "audio")
	jobDir := filepath.Join(t.TempDir(), "job", "speech")
	got, err := Checkout(src, jobDir)
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	data, err := os.ReadFile(got)
	if err != nil || string(data) != "audio" {
		t.Fatalf("checked out copy = %q, %v", data, err)
	}
	if again, err := Checkout(got, jobDir); err != nil || again != got {
		t.Fatalf("Checkout() onto itself = %q, %v", again, err)
	}
}

func TestCheckoutConcurrentCopiesAreSeparate(t *testing.T) {
	body := strings.Repeat("narration", 64<<10)
	src := writeFile(t, t.TempDir(), "abc.mp3", body)
	jobDir := t.TempDir()

	const n = 8
	paths := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = Checkout(src, jobDir)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Checkout() error = %v", errs[i])
		}
		if seen[paths[i]] {
			t.Fatalf("two checkouts share %s", paths[i])
		}
		seen[paths[i]] = true
		data, err := os.ReadFile(paths[i])
		if err != nil || len(data) != len(body) {
			t.Fatalf("copy %s has %d bytes, want %d (%v)", paths[i], len(data), len(body), err)
		}
		if !strings.HasSuffix(paths[i], ".mp3") || !strings.HasPrefix(filepath.Base(paths[i]), "abc_") {
			t.Fatalf("unexpected name %s", paths[i])
		}
	}
}

