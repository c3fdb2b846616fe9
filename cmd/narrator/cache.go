package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/timmy/narrator/internal/cache"
	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/service"
)

// Buckets whose file names are fingerprints.
var fingerprintBuckets = []struct {
	name string
	kind domain.AssetKind
}{
	{service.BucketSpeech, domain.AssetSpeech},
	{service.BucketImages, domain.AssetImage},
	{service.BucketLLM, domain.AssetLLM},
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the artifact cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	return cacheCmd
}

func openBuckets(cfg *config.Config, only string) ([]*cache.Store, error) {
	var out []*cache.Store
	for _, b := range fingerprintBuckets {
		if only != "" && only != b.name {
			continue
		}
		dir := cfg.Cache.Dir(b.name)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		s, err := cache.New(dir, b.kind, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cached artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stores, err := openBuckets(cfg, bucket)
			if err != nil {
				return err
			}

			var rows [][]string
			var total int64
			for _, s := range stores {
				entries, err := s.List()
				if err != nil {
					return err
				}
				sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.After(entries[j].ModTime) })
				for _, e := range entries {
					total += e.Size
					rows = append(rows, []string{
						string(s.Kind()),
						e.Fingerprint.Short(),
						humanBytes(e.Size),
						e.ModTime.Local().Format("2006-01-02 15:04"),
					})
				}
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Fingerprint", "Size", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d artifacts, %s\n", len(rows), humanBytes(total))
			return nil
		},
	}
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Only this bucket (speech, images, llm)")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "rm <fingerprint>",
		Short: "Remove the artifacts stored under a fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stores, err := openBuckets(cfg, bucket)
			if err != nil {
				return err
			}
			fp := domain.Fingerprint(args[0])
			removed := 0
			for _, s := range stores {
				if _, ok, _ := s.Lookup(cmd.Context(), fp); !ok {
					continue
				}
				if err := s.Invalidate(cmd.Context(), fp); err != nil {
					return err
				}
				removed++
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s artifact %s\n", s.Kind(), fp.Short())
			}
			if removed == 0 {
				return fmt.Errorf("no cached artifact matches %s", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Only this bucket (speech, images, llm)")
	return cmd
}
