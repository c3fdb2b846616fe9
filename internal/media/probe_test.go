package media

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestDecodeCheckImages(t *testing.T) {
	dir := t.TempDir()
	p := NewProbe("")

	good := filepath.Join(dir, "good.png")
	writePNG(t, good)
	if !p.DecodeCheck(context.Background(), good) {
		t.Fatal("valid png rejected")
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("<html>rate limited</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if p.DecodeCheck(context.Background(), bad) {
		t.Fatal("html body accepted as png")
	}

	empty := filepath.Join(dir, "empty.webp")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if p.DecodeCheck(context.Background(), empty) {
		t.Fatal("empty webp accepted")
	}

	if p.DecodeCheck(context.Background(), filepath.Join(dir, "missing.png")) {
		t.Fatal("missing file accepted")
	}
}

// fakeFFprobe writes a script that prints a fixed ffprobe report.
func fakeFFprobe(t *testing.T, report string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + report + "\nJSON\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestDurationFromFFprobe(t *testing.T) {
	bin := fakeFFprobe(t, `{"streams":[{"codec_type":"audio","duration":"3.48"}],"format":{"duration":"3.500000"}}`)
	audio := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(audio, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewProbe(bin)
	d, err := p.Duration(context.Background(), audio)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if d != 3.5 {
		t.Fatalf("Duration() = %v, want 3.5", d)
	}
	if !p.DecodeCheck(context.Background(), audio) {
		t.Fatal("audio with positive duration rejected")
	}
}

func TestDurationZeroIsInvalid(t *testing.T) {
	bin := fakeFFprobe(t, `{"streams":[],"format":{"duration":"N/A"}}`)
	audio := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(audio, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewProbe(bin)
	if _, err := p.Duration(context.Background(), audio); err == nil {
		t.Fatal("Duration() accepted N/A")
	}
	if p.DecodeCheck(context.Background(), audio) {
		t.Fatal("DecodeCheck() accepted zero-length audio")
	}
}

func TestProbeResultFallsBackToStreams(t *testing.T) {
	r := ProbeResult{Streams: []Stream{{CodecType: "video", Duration: "6.0"}, {CodecType: "audio", Duration: "5.9"}}}
	if r.DurationSeconds() != 6 {
		t.Fatalf("DurationSeconds() = %v", r.DurationSeconds())
	}
	if !r.HasStream("VIDEO") || r.HasStream("subtitle") {
		t.Fatal("HasStream() mismatch")
	}
}
