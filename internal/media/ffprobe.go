package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeResult is the subset of ffprobe JSON output the pipeline reads.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes its JSON report.
func Inspect(ctx context.Context, binary, path string) (ProbeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var stderr string
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return ProbeResult{}, fmt.Errorf("ffprobe inspect: %w: %s", err, stderr)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// DurationSeconds returns the container duration, falling back to the
// longest stream. It returns 0 when nothing parses.
func (r ProbeResult) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	var longest float64
	for _, s := range r.Streams {
		if d := parseFloat(s.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

// HasStream reports whether a stream of codecType (audio, video) exists.
func (r ProbeResult) HasStream(codecType string) bool {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			return true
		}
	}
	return false
}

func parseFloat(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
