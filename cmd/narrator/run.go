package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timmy/narrator/internal/app"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/service"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		mode       string
		prompt     string
		scriptFile string
		videos     []string
		music      string
		style      string
		voice      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one video in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &service.CreateJobRequest{
				Mode:               domain.JobMode(mode),
				Prompt:             prompt,
				VideoPaths:         videos,
				BackgroundAudioURL: music,
				ImageStyle:         style,
				Voice:              voice,
			}
			if scriptFile != "" {
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				req.Script = strings.TrimSpace(string(data))
			}
			if err := req.Validate(); err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), ctx.configPath, "narrator", app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.Jobs.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s (%s) started\n", job.ID, job.Mode)
			if err := a.Jobs.Process(cmd.Context(), job.ID); err != nil {
				return fmt.Errorf("job %s failed: %w", job.ID, err)
			}

			done, err := a.Jobs.Get(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Video:   %s\n", done.OutputPath)
			fmt.Fprintf(out, "Preview: %s\n", done.PreviewPath)
			if done.OutputURL != "" {
				fmt.Fprintf(out, "URL:     %s\n", done.OutputURL)
			}
			fmt.Fprintf(out, "%d sentences, %d segments, %s\n", done.SentenceCount, done.SegmentCount, seconds(done.DurationSeconds))
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(domain.JobModeStory), "Job mode: story or reels")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Topic to write a script for")
	cmd.Flags().StringVarP(&scriptFile, "script-file", "f", "", "Narrate this script instead of generating one")
	cmd.Flags().StringArrayVar(&videos, "video", nil, "Clip path or URL for reels (repeatable, skips stock search)")
	cmd.Flags().StringVar(&music, "music", "", "Background audio URL")
	cmd.Flags().StringVar(&style, "style", "", "Image style for story mode")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice id override")
	return cmd
}
