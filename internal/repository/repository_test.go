package repository

import (
	"context"
	"errors"
	"path/filepath"
	"time"
	"testing"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	return db
}

func TestCacheEntryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheEntryRepository(openTestDB(t))
	fp := domain.NewFingerprint("Hello world.", "voice-a")

	got, err := repo.Get(ctx, domain.AssetSpeech, fp)
	if err != nil || got != nil {
		t.Fatalf("Get() on empty index = %v, %v", got, err)
	}

	if err := repo.Upsert(ctx, &domain.CacheEntry{Fingerprint: fp, Kind: domain.AssetSpeech, Path: "/a.mp3", Valid: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, &domain.CacheEntry{Fingerprint: fp, Kind: domain.AssetSpeech, Path: "/b.mp3", Valid: true}); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	got, err = repo.Get(ctx, domain.AssetSpeech, fp)
	if err != nil || got == nil || got.Path != "/b.mp3" {
		t.Fatalf("Get() = %+v, %v; want path /b.mp3", got, err)
	}

	if err := repo.Delete(ctx, fp); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := repo.Get(ctx, domain.AssetSpeech, fp); got != nil {
		t.Fatalf("entry still present after Delete: %+v", got)
	}
}

func TestJobRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(openTestDB(t))

	job := &domain.Job{ID: "j1", Mode: domain.JobModeStory, Status: domain.JobStatusPending, Prompt: "a fox"}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	started := time.Now()
	job.Status = domain.JobStatusFailed
	job.StartedAt = &started
	job.CompletedAt = &started
	job.ErrorLog = "speech [sentence 2]: exhausted"
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "j1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.JobStatusFailed || got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatalf("unexpected job state: %+v", got)
	}
	if got.ErrorLog != "speech [sentence 2]: exhausted" {
		t.Fatalf("ErrorLog = %q", got.ErrorLog)
	}

	failed, err := repo.List(ctx, domain.JobStatusFailed, 10, 0)
	if err != nil || len(failed) != 1 {
		t.Fatalf("List(failed) = %d, %v", len(failed), err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID(missing) error = %v", err)
	}
}

func TestSceneRepositoryExactMatch(t *testing.T) {
	ctx := context.Background()
	repo := NewSceneRepository(openTestDB(t))

	if err := repo.Save(ctx, "The fox runs.", "Anime", "a fox running, anime"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s, err := repo.Find(ctx, "The fox runs.", "Anime")
	if err != nil || s == nil || s.ImagePrompt != "a fox running, anime" {
		t.Fatalf("Find() = %+v, %v", s, err)
	}
	// Same fingerprint after normalization, but not the exact sentence.
	s, err = repo.Find(ctx, "the fox  runs.", "Anime")
	if err != nil || s != nil {
		t.Fatalf("Find() on near match = %+v, %v; want nil", s, err)
	}
	s, err = repo.Find(ctx, "The fox runs.", "Watercolor")
	if err != nil || s != nil {
		t.Fatalf("Find() under other style = %+v, %v; want nil", s, err)
	}
}
