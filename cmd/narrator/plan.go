package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/segment"
	"github.com/timmy/narrator/internal/service"
	"github.com/timmy/narrator/internal/timeline"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var (
		mode       string
		scriptFile string
		durations  string
		clips      []string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Lay out a timeline from known durations without calling providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(scriptFile)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			ds, err := parseDurations(durations)
			if err != nil {
				return err
			}
			pool, err := parseClips(clips)
			if err != nil {
				return err
			}
			seg, err := segment.New()
			if err != nil {
				return err
			}

			plan, err := service.BuildPlan(cfg.Job, seg, service.PlanRequest{
				Mode:      domain.JobMode(mode),
				Script:    string(data),
				Durations: ds,
				Clips:     pool,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPlan(plan))
			fmt.Fprintf(out, "%d sentences, %d captions, total %s\n", len(plan.Sentences), len(plan.Captions), seconds(plan.Total))
			if output != "" {
				if err := timeline.WriteManifest(output, plan); err != nil {
					return err
				}
				fmt.Fprintf(out, "Plan written to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(domain.JobModeReels), "Job mode: story or reels")
	cmd.Flags().StringVarP(&scriptFile, "script-file", "f", "", "Script to segment")
	cmd.Flags().StringVarP(&durations, "durations", "d", "", "Comma separated narration length per sentence, in seconds")
	cmd.Flags().StringArrayVar(&clips, "clip", nil, "Clip as path:seconds (repeatable, reels only)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the plan as YAML to this path")
	_ = cmd.MarkFlagRequired("script-file")
	_ = cmd.MarkFlagRequired("durations")

	cmd.AddCommand(newPlanShowCommand())
	return cmd
}

func newPlanShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan.yaml>",
		Short: "Print the timeline recorded for a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := timeline.ReadManifest(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if plan.JobID != "" {
				fmt.Fprintf(out, "Job %s (%s)\n", plan.JobID, plan.Mode)
			}
			fmt.Fprintln(out, renderPlan(plan))
			fmt.Fprintf(out, "%d sentences, %d captions, total %s\n", len(plan.Sentences), len(plan.Captions), seconds(plan.Total))
			return nil
		},
	}
}

func parseDurations(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseClips(specs []string) ([]domain.VisualAsset, error) {
	out := make([]domain.VisualAsset, 0, len(specs))
	for _, spec := range specs {
		i := strings.LastIndex(spec, ":")
		if i <= 0 {
			return nil, fmt.Errorf("clip %q: want path:seconds", spec)
		}
		d, err := strconv.ParseFloat(spec[i+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", spec, err)
		}
		out = append(out, domain.VisualAsset{Kind: domain.VisualVideo, Path: spec[:i], SourceDuration: d})
	}
	return out, nil
}

func renderPlan(plan *timeline.Plan) string {
	rows := make([][]string, 0, len(plan.Segments))
	for i, s := range plan.Segments {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			seconds(s.Start),
			seconds(s.Duration),
			string(s.Visual.Kind),
			filepath.Base(s.Visual.Path),
		})
	}
	return renderTable(
		[]string{"#", "Start", "Duration", "Kind", "Visual"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}
