package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
)

type call struct {
	name string
	args []string
}

func recorder(calls *[]call) CommandRunner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		return nil
	}
}

func testConfig() config.RenderConfig {
	return config.RenderConfig{
		FFmpeg:       "ffmpeg-test",
		Threads:      2,
		Width:        1080,
		Height:       1920,
		FontName:     "Luckiest Guy",
		FontSize:     70,
		TextColor:    "#ff8000",
		StrokeColor:  "#000000",
		StrokeWidth:  5,
		PreviewStart: 1.0,
		PreviewEnd:   1.5,
	}
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestRenderBuildsCommands(t *testing.T) {
	dir := t.TempDir()
	var calls []call
	r := New(testConfig()).WithRunner(recorder(&calls))

	in := Input{
		Segments: []domain.TimelineSegment{
			{Visual: domain.VisualAsset{Kind: domain.VisualImage, Path: "/img/0.png"}, Duration: 2.5},
			{Visual: domain.VisualAsset{Kind: domain.VisualVideo, Path: "/clips/a.mp4"}, Start: 2.5, Duration: 3},
		},
		Speech:    []string{filepath.Join(dir, "0.mp3"), filepath.Join(dir, "1.mp3")},
		Subtitles: filepath.Join(dir, "subtitles.srt"),
		Output:    filepath.Join(dir, "out", "final.mp4"),
	}
	if err := r.Render(context.Background(), in); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 ffmpeg calls, got %d", len(calls))
	}
	if calls[0].name != "ffmpeg-test" {
		t.Fatalf("binary = %q", calls[0].name)
	}

	list, err := os.ReadFile(filepath.Join(dir, "out", "speech.txt"))
	if err != nil {
		t.Fatalf("concat list: %v", err)
	}
	if strings.Count(string(list), "file '") != 2 {
		t.Fatalf("unexpected concat list:\n%s", list)
	}

	args := calls[1].args
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-loop 1 -t 2.500 -i /img/0.png") {
		t.Errorf("image input not looped: %s", joined)
	}
	if !strings.Contains(joined, "-t 3.000 -i /clips/a.mp4") {
		t.Errorf("video input not trimmed: %s", joined)
	}
	graph := argValue(args, "-filter_complex")
	for _, want := range []string{
		"[0:v]scale=1080:1920",
		"concat=n=2:v=1:a=0[vcat]",
		"subtitles=",
		"PrimaryColour=&H000080FF",
		"[2:a]anull[aout]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("filter graph missing %q:\n%s", want, graph)
		}
	}
	if argValue(args, "-threads") != "2" {
		t.Errorf("threads not passed")
	}
	if args[len(args)-1] != in.Output {
		t.Errorf("output = %q", args[len(args)-1])
	}
}

func TestRenderMixesMusic(t *testing.T) {
	dir := t.TempDir()
	var calls []call
	r := New(testConfig()).WithRunner(recorder(&calls))

	in := Input{
		Segments: []domain.TimelineSegment{
			{Visual: domain.VisualAsset{Kind: domain.VisualVideo, Path: "/clips/a.mp4"}, Duration: 4},
		},
		Speech: []string{filepath.Join(dir, "0.mp3")},
		Music:  "/audio/bg.mp3",
		Output: filepath.Join(dir, "final.mp4"),
	}
	if err := r.Render(context.Background(), in); err != nil {
		t.Fatalf("Render: %v", err)
	}
	args := calls[1].args
	if !strings.Contains(strings.Join(args, " "), "-stream_loop -1 -i /audio/bg.mp3") {
		t.Errorf("music input missing: %v", args)
	}
	graph := argValue(args, "-filter_complex")
	if !strings.Contains(graph, "[2:a]volume=0.10[bg]") || !strings.Contains(graph, "[1:a][bg]amix=inputs=2") {
		t.Errorf("music not mixed:\n%s", graph)
	}
	if strings.Contains(graph, "subtitles=") {
		t.Errorf("subtitles filter added without a subtitle file")
	}
}

func TestRenderRejectsEmptyInput(t *testing.T) {
	r := New(testConfig()).WithRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner should not be called")
		return nil
	})
	err := r.Render(context.Background(), Input{Speech: []string{"a.mp3"}})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRenderPropagatesFailure(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("exit status 1")
	r := New(testConfig()).WithRunner(func(context.Context, string, ...string) error { return boom })
	err := r.Render(context.Background(), Input{
		Segments: []domain.TimelineSegment{{Visual: domain.VisualAsset{Kind: domain.VisualImage, Path: "a.png"}, Duration: 1}},
		Speech:   []string{"a.mp3"},
		Output:   filepath.Join(dir, "final.mp4"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestPreviewWindow(t *testing.T) {
	var calls []call
	r := New(testConfig()).WithRunner(recorder(&calls))
	if err := r.Preview(context.Background(), "final.mp4", "final.gif"); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	args := calls[0].args
	if argValue(args, "-ss") != "1.000" || argValue(args, "-t") != "0.500" {
		t.Errorf("unexpected window: %v", args)
	}
	if args[len(args)-1] != "final.gif" {
		t.Errorf("output = %q", args[len(args)-1])
	}
}

func TestAssColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#ffffff", "&H00FFFFFF", true},
		{"#112233", "&H00332211", true},
		{"white", "", false},
		{"#12345", "", false},
	}
	for _, tt := range tests {
		got, ok := assColor(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("assColor(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
