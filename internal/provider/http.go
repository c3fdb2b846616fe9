package provider

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 100 * time.Second
	userAgent      = "narrator/1.0"
)

// newClient builds the resty client shared by one backend.
func newClient(baseURL string) *resty.Client {
	c := resty.New().
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", userAgent)
	if baseURL != "" {
		c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
	return c
}

// checkResponse converts transport failures and non-2xx statuses into an error.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		body := strings.TrimSpace(resp.String())
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode(), body)
	}
	if len(resp.Body()) == 0 {
		return fmt.Errorf("empty response body")
	}
	return nil
}

// writeArtifact stores data as <prefix>_<uuid><ext> under dir.
func writeArtifact(dir, prefix, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, prefix+"_"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// decodeBase64Image strips an optional data URI prefix and decodes.
func decodeBase64Image(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
