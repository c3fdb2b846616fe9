package provider

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/narrator/internal/cache"
	"github.com/timmy/narrator/internal/logger"
)

// Fetcher downloads remote resources and keeps a copy in cacheDir keyed by
// the URL's base name.
type Fetcher struct {
	client   *resty.Client
	cacheDir string
}

func NewFetcher(cacheDir string) (*Fetcher, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create fetch cache: %w", err)
	}
	c := newClient("").SetRetryCount(2)
	return &Fetcher{client: c, cacheDir: cacheDir}, nil
}

// Fetch returns a local copy of rawURL inside destDir.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destDir string) (string, error) {
	name, err := baseName(rawURL)
	if err != nil {
		return "", err
	}

	cached := filepath.Join(f.cacheDir, name)
	if _, err := os.Stat(cached); err == nil {
		logger.CtxDebug(ctx, "resource cache hit: %s", name)
		return cache.Checkout(cached, destDir)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}
	logger.CtxInfo(ctx, "downloading resource: %s", rawURL)

	tmp, err := os.CreateTemp(f.cacheDir, ".dl-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	resp, err := f.client.R().
		SetContext(ctx).
		SetOutput(tmpName).
		Get(rawURL)
	if err == nil && resp.IsError() {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	if err != nil {
		os.Remove(tmpName)
		return "", transient("fetch", fmt.Errorf("%s: %w", rawURL, err))
	}
	if err := os.Rename(tmpName, cached); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move into fetch cache: %w", err)
	}
	return cache.Checkout(cached, destDir)
}

func baseName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return name, nil
}
