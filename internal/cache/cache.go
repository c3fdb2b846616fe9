// Package cache is a content-addressable artifact store. Artifacts are
// files whose names embed the fingerprint of the input that produced them.
package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
)

const (
	lockDir       = ".locks"
	tempPrefix    = ".tmp-"
	lockRetryWait = 50 * time.Millisecond
)

// Index is an optional fingerprint -> path lookup kept beside the files.
// The directory stays the source of truth; the index only short-circuits
// the scan.
type Index interface {
	Get(ctx context.Context, kind domain.AssetKind, fp domain.Fingerprint) (*domain.CacheEntry, error)
	Upsert(ctx context.Context, entry *domain.CacheEntry) error
	Delete(ctx context.Context, fp domain.Fingerprint) error
}

// Store is one cache bucket (speech, images, ...) rooted at a directory.
// It is safe for concurrent use by goroutines and by other processes
// sharing the directory.
type Store struct {
	dir   string
	kind  domain.AssetKind
	index Index
}

// Entry describes one artifact on disk.
type Entry struct {
	Fingerprint domain.Fingerprint
	Path        string
	Size        int64
	ModTime     time.Time
}

// New opens (creating if needed) the bucket at dir. index may be nil.
func New(dir string, kind domain.AssetKind, index Index) (*Store, error) {
	if dir == "" {
		return nil, domain.Configurationf("cache dir for %s is empty", kind)
	}
	if err := os.MkdirAll(filepath.Join(dir, lockDir), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, kind: kind, index: index}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Kind() domain.AssetKind { return s.kind }

// Lookup returns the artifact path stored under fp.
func (s *Store) Lookup(ctx context.Context, fp domain.Fingerprint) (string, bool, error) {
	if s.index != nil {
		entry, err := s.index.Get(ctx, s.kind, fp)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("cache index lookup failed, scanning directory")
		} else if entry != nil {
			if _, statErr := os.Stat(entry.Path); statErr == nil {
				return entry.Path, true, nil
			}
			// File vanished underneath the index.
			_ = s.index.Delete(ctx, fp)
		}
	}

	matches, err := s.scan(fp)
	if err != nil {
		return "", false, err
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	return matches[0], true, nil
}

// scan lists files whose name contains fp, ignoring case. Cost is linear
// in the number of files in the bucket.
func (s *Store) scan(fp domain.Fingerprint) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	needle := strings.ToLower(fp.String())
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			out = append(out, filepath.Join(s.dir, name))
		}
	}
	return out, nil
}

// Store copies src into the bucket under fp and returns the cached path.
// The copy is written to a temporary file and renamed into place, so a
// concurrent Lookup never sees a partial artifact. Any older artifact for
// fp is removed so that at most one exists.
func (s *Store) Store(ctx context.Context, fp domain.Fingerprint, src string) (string, error) {
	unlock, err := s.lock(ctx, fp)
	if err != nil {
		return "", err
	}
	defer unlock()

	dst := filepath.Join(s.dir, fp.String()+strings.ToLower(filepath.Ext(src)))

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	size, err := copyInto(tmp, src)
	if err != nil {
		os.Remove(tmpName)
		return "", err
	}

	old, err := s.scan(fp)
	if err != nil {
		os.Remove(tmpName)
		return "", err
	}
	for _, p := range old {
		if p != dst {
			os.Remove(p)
		}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename into cache: %w", err)
	}

	if s.index != nil {
		if err := s.index.Upsert(ctx, &domain.CacheEntry{
			Fingerprint: fp,
			Kind:        s.kind,
			Path:        dst,
			Size:        size,
			Valid:       true,
		}); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("cache index update failed")
		}
	}

	logger.With(logger.Fields{
		logger.FieldFingerprint: fp.Short(),
		logger.FieldSize:        size,
	}).Debug(ctx, "stored %s artifact", s.kind)
	return dst, nil
}

// Invalidate removes every artifact stored under fp.
func (s *Store) Invalidate(ctx context.Context, fp domain.Fingerprint) error {
	unlock, err := s.lock(ctx, fp)
	if err != nil {
		return err
	}
	defer unlock()

	matches, err := s.scan(fp)
	if err != nil {
		return err
	}
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cached artifact: %w", err)
		}
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, fp); err != nil {
			return fmt.Errorf("delete cache index entry: %w", err)
		}
	}
	logger.With(logger.Fields{logger.FieldFingerprint: fp.Short()}).
		Info(ctx, "invalidated %s artifact", s.kind)
	return nil
}

// List returns all artifacts in the bucket in directory order.
func (s *Store) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Fingerprint: domain.Fingerprint(strings.TrimSuffix(name, filepath.Ext(name))),
			Path:        filepath.Join(s.dir, name),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
		})
	}
	return out, nil
}

func (s *Store) lock(ctx context.Context, fp domain.Fingerprint) (func(), error) {
	fl := flock.New(filepath.Join(s.dir, lockDir, fp.String()+".lock"))
	ok, err := fl.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fp.Short(), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", fp.Short())
	}
	return func() { _ = fl.Unlock() }, nil
}

// Checkout copies a cached artifact into dir and returns the new path. Every
// call gets its own file, named after the artifact plus a random suffix, and
// the copy only appears under that name once complete. A path already in dir
// is returned as is.
func Checkout(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	if filepath.Clean(filepath.Dir(path)) == filepath.Clean(dir) {
		return path, nil
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp in %s: %w", dir, err)
	}
	if _, err := copyInto(tmp, path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	dst := filepath.Join(dir, stem+"_"+uuid.NewString()+ext)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename into %s: %w", dst, err)
	}
	return dst, nil
}

// copyInto copies src into dst, then syncs and closes dst.
func copyInto(dst *os.File, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		dst.Close()
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	n, err := io.Copy(dst, in)
	if err != nil {
		dst.Close()
		return 0, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return 0, fmt.Errorf("sync %s: %w", dst.Name(), err)
	}
	if err := dst.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", dst.Name(), err)
	}
	return n, nil
}
