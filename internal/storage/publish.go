package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/timmy/narrator/internal/logger"
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".gif":  "image/gif",
	".srt":  "application/x-subrip",
	".yaml": "application/yaml",
}

// JobKey returns the object key for a job output file.
func JobKey(jobID, name string) string {
	return path.Join("jobs", jobID, name)
}

// Publish uploads the local file at localPath under jobs/<jobID>/ and
// returns its URL.
func Publish(ctx context.Context, store ObjectStorage, jobID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	key := JobKey(jobID, filepath.Base(localPath))
	if err := store.Upload(ctx, key, f, info.Size(), contentType(localPath)); err != nil {
		return "", err
	}
	// Some S3-compatible stores acknowledge a put before the object is
	// readable.
	ok, err := store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s not visible after upload", key)
	}
	url := store.GetURL(key)
	logger.With(logger.Fields{"key": key, "size": info.Size()}).Info(ctx, "published %s", filepath.Base(localPath))
	return url, nil
}

// PublishAll publishes each file in order and returns their URLs. If one
// upload fails, the objects already published for the job are deleted so a
// job never exposes half its outputs.
func PublishAll(ctx context.Context, store ObjectStorage, jobID string, localPaths ...string) ([]string, error) {
	urls := make([]string, 0, len(localPaths))
	for i, p := range localPaths {
		url, err := Publish(ctx, store, jobID, p)
		if err != nil {
			for _, done := range localPaths[:i] {
				key := JobKey(jobID, filepath.Base(done))
				if derr := store.Delete(ctx, key); derr != nil {
					logger.FromContext(ctx).WithError(derr).WithField("key", key).Warn("rollback delete failed")
				}
			}
			return nil, fmt.Errorf("publish %s: %w", filepath.Base(p), err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func contentType(p string) string {
	ext := strings.ToLower(filepath.Ext(p))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
