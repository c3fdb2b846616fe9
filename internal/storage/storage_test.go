package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/narrator/internal/config"
)

type memStorage struct {
	objects map[string][]byte
	types   map[string]string
	// failSuffix makes uploads of matching keys fail.
	failSuffix string
	// hidden accepts uploads without storing them.
	hidden bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, ct string) error {
	if m.failSuffix != "" && strings.HasSuffix(key, m.failSuffix) {
		return errors.New("upload refused")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if m.hidden {
		return nil
	}
	m.objects[key] = buf.Bytes()
	m.types[key] = ct
	return nil
}

func (m *memStorage) GetURL(key string) string { return "https://cdn.test/" + key }

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) EnsureBucket(context.Context) error { return nil }

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "final.mp4")
	if err := os.WriteFile(local, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newMemStorage()
	url, err := Publish(context.Background(), store, "job-1", local)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://cdn.test/jobs/job-1/final.mp4" {
		t.Fatalf("url = %q", url)
	}
	if string(store.objects["jobs/job-1/final.mp4"]) != "video" {
		t.Fatalf("object not uploaded")
	}
	if store.types["jobs/job-1/final.mp4"] != "video/mp4" {
		t.Fatalf("content type = %q", store.types["jobs/job-1/final.mp4"])
	}
}

func TestPublishMissingFile(t *testing.T) {
	if _, err := Publish(context.Background(), newMemStorage(), "job-1", filepath.Join(t.TempDir(), "nope.gif")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPublishRequiresVisibleObject(t *testing.T) {
	local := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(local, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := newMemStorage()
	store.hidden = true
	if _, err := Publish(context.Background(), store, "job-1", local); err == nil {
		t.Fatal("expected error when the object is not readable after upload")
	}
}

func TestPublishAllRollsBack(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "final.mp4")
	preview := filepath.Join(dir, "final.gif")
	for _, p := range []string{video, preview} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store := newMemStorage()
	urls, err := PublishAll(context.Background(), store, "job-1", video, preview)
	if err != nil || len(urls) != 2 || urls[1] != "https://cdn.test/jobs/job-1/final.gif" {
		t.Fatalf("PublishAll() = %v, %v", urls, err)
	}

	store = newMemStorage()
	store.failSuffix = ".gif"
	if _, err := PublishAll(context.Background(), store, "job-2", video, preview); err == nil {
		t.Fatal("expected error when the preview upload fails")
	}
	if len(store.objects) != 0 {
		t.Fatalf("objects left after rollback: %v", store.objects)
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := map[string]StorageType{
		"https://acc.r2.cloudflarestorage.com": StorageTypeR2,
		"s3.us-west-2.amazonaws.com":           StorageTypeS3,
		"localhost:9000":                       StorageTypeS3Compatible,
	}
	for endpoint, want := range tests {
		if got := detectStorageType(endpoint); got != want {
			t.Errorf("detectStorageType(%q) = %q, want %q", endpoint, got, want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	if got := normalizeEndpoint("https://minio.local:9000/bucket/"); got != "minio.local:9000" {
		t.Fatalf("normalizeEndpoint = %q", got)
	}
}

func TestNewStorageDisabled(t *testing.T) {
	store, err := NewStorage(&config.StorageConfig{})
	if err != nil || store != nil {
		t.Fatalf("expected nil storage, got %v, %v", store, err)
	}
}

func TestS3StorageURL(t *testing.T) {
	s, err := NewS3Storage(&config.StorageConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "narrator",
	}, StorageTypeS3Compatible)
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}
	if got := s.GetURL("jobs/x/final.mp4"); got != "http://localhost:9000/narrator/jobs/x/final.mp4" {
		t.Fatalf("GetURL = %q", got)
	}
}
