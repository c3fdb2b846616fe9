package main

import (
	"github.com/spf13/cobra"
	"github.com/timmy/narrator/internal/config"
)

type commandContext struct {
	configPath string
	cfg        *config.Config
}

// ensureConfig loads configuration once per invocation.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "narrator",
		Short:         "Generate narrated short videos from a prompt or script",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	return rootCmd
}
