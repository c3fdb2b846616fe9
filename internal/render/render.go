package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
)

const (
	frameRate    = 30
	musicVolume  = 0.1
	previewFPS   = 10
	previewWidth = 320
)

// CommandRunner executes an external binary. Tests replace it to capture args.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Input is everything needed to produce one final video.
type Input struct {
	Segments  []domain.TimelineSegment
	Speech    []string
	Subtitles string
	Music     string
	Output    string
}

// Renderer drives ffmpeg.
type Renderer struct {
	cfg config.RenderConfig
	run CommandRunner
}

func New(cfg config.RenderConfig) *Renderer {
	return &Renderer{cfg: cfg, run: defaultCommandRunner}
}

// WithRunner swaps the command runner.
func (r *Renderer) WithRunner(run CommandRunner) *Renderer {
	r.run = run
	return r
}

// Render concatenates the speech track, then composes the visuals with burned
// in subtitles over it.
func (r *Renderer) Render(ctx context.Context, in Input) error {
	if len(in.Segments) == 0 {
		return domain.Configurationf("render: no timeline segments")
	}
	if len(in.Speech) == 0 {
		return domain.Configurationf("render: no speech track")
	}
	start := time.Now()
	workDir := filepath.Dir(in.Output)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	listPath := filepath.Join(workDir, "speech.txt")
	if err := writeConcatList(listPath, in.Speech); err != nil {
		return err
	}
	audioPath := filepath.Join(workDir, "speech.m4a")
	if err := r.run(ctx, r.ffmpeg(), r.speechArgs(listPath, audioPath)...); err != nil {
		return fmt.Errorf("ffmpeg concat speech: %w", err)
	}

	if err := r.run(ctx, r.ffmpeg(), r.videoArgs(in, audioPath)...); err != nil {
		return fmt.Errorf("ffmpeg render: %w", err)
	}
	logger.With(logger.Fields{"output": in.Output}).
		WithCount(len(in.Segments)).WithSince(start).Info(ctx, "rendered video")
	return nil
}

// Preview cuts a short looping gif out of a rendered video.
func (r *Renderer) Preview(ctx context.Context, video, gif string) error {
	if err := r.run(ctx, r.ffmpeg(), r.previewArgs(video, gif)...); err != nil {
		return fmt.Errorf("ffmpeg preview: %w", err)
	}
	return nil
}

func (r *Renderer) ffmpeg() string {
	if r.cfg.FFmpeg == "" {
		return "ffmpeg"
	}
	return r.cfg.FFmpeg
}

func (r *Renderer) speechArgs(list, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-vn",
		"-c:a", "aac",
		"-b:a", "192k",
		dest,
	}
}

func (r *Renderer) videoArgs(in Input, audio string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, seg := range in.Segments {
		d := seconds(seg.Duration)
		if seg.Visual.Loopable() {
			args = append(args, "-loop", "1", "-t", d, "-i", seg.Visual.Path)
		} else {
			args = append(args, "-t", d, "-i", seg.Visual.Path)
		}
	}
	speechIdx := len(in.Segments)
	args = append(args, "-i", audio)
	if in.Music != "" {
		args = append(args, "-stream_loop", "-1", "-i", in.Music)
	}

	args = append(args, "-filter_complex", r.filterGraph(in, speechIdx))
	args = append(args, "-map", "[vout]", "-map", "[aout]")
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(frameRate),
		"-c:a", "aac",
	)
	if r.cfg.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(r.cfg.Threads))
	}
	args = append(args, "-shortest", in.Output)
	return args
}

func (r *Renderer) filterGraph(in Input, speechIdx int) string {
	w, h := r.size()
	var parts []string
	labels := make([]string, 0, len(in.Segments))
	for i, seg := range in.Segments {
		label := fmt.Sprintf("[v%d]", i)
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,trim=duration=%s,setpts=PTS-STARTPTS%s",
			i, w, h, w, h, frameRate, seconds(seg.Duration), label))
		labels = append(labels, label)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vcat]", strings.Join(labels, ""), len(labels)))

	video := "[vcat]"
	if in.Subtitles != "" {
		parts = append(parts, fmt.Sprintf("%ssubtitles=%s:force_style='%s'[vsub]", video, escapeFilterPath(in.Subtitles), r.subtitleStyle()))
		video = "[vsub]"
	}
	if r.cfg.Watermark != "" {
		parts = append(parts, fmt.Sprintf("%sdrawtext=text='%s':fontcolor=white@0.6:fontsize=40:x=w-tw-40:y=h-th-80[vwm]", video, escapeText(r.cfg.Watermark)))
		video = "[vwm]"
	}
	parts = append(parts, video+"null[vout]")

	if in.Music != "" {
		parts = append(parts,
			fmt.Sprintf("[%d:a]volume=%.2f[bg]", speechIdx+1, musicVolume),
			fmt.Sprintf("[%d:a][bg]amix=inputs=2:duration=first:dropout_transition=0[aout]", speechIdx),
		)
	} else {
		parts = append(parts, fmt.Sprintf("[%d:a]anull[aout]", speechIdx))
	}
	return strings.Join(parts, ";")
}

func (r *Renderer) previewArgs(video, gif string) []string {
	start, end := r.cfg.PreviewStart, r.cfg.PreviewEnd
	if end <= start {
		start, end = 1.0, 1.5
	}
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", seconds(start),
		"-t", seconds(end - start),
		"-i", video,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", previewFPS, previewWidth),
		"-loop", "0",
		gif,
	}
}

func (r *Renderer) size() (int, int) {
	w, h := r.cfg.Width, r.cfg.Height
	if w <= 0 || h <= 0 {
		return 1080, 1920
	}
	return w, h
}

// subtitleStyle maps the render config onto an ASS force_style value.
func (r *Renderer) subtitleStyle() string {
	fields := []string{"Alignment=10", "BorderStyle=1"}
	if r.cfg.FontName != "" {
		fields = append(fields, "FontName="+r.cfg.FontName)
	}
	if r.cfg.FontSize > 0 {
		fields = append(fields, "FontSize="+strconv.Itoa(r.cfg.FontSize))
	}
	if c, ok := assColor(r.cfg.TextColor); ok {
		fields = append(fields, "PrimaryColour="+c)
	}
	if c, ok := assColor(r.cfg.StrokeColor); ok {
		fields = append(fields, "OutlineColour="+c)
	}
	if r.cfg.StrokeWidth > 0 {
		fields = append(fields, "Outline="+strconv.Itoa(r.cfg.StrokeWidth))
	}
	return strings.Join(fields, ",")
}

// assColor converts #rrggbb to the &H00bbggrr form libass expects.
func assColor(hex string) (string, bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return "", false
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", false
	}
	hex = strings.ToUpper(hex)
	return "&H00" + hex[4:6] + hex[2:4] + hex[0:2], true
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `'`, `\\\'`, `:`, `\\:`, `,`, `\,`)
	return r.Replace(p)
}

func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(s)
}

func writeConcatList(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
