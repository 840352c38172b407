package main

import (
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(strings.TrimSpace(*c.configFlag))
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool
	ctx := &commandContext{configFlag: &configFlag, verbose: &verbose}

	rootCmd := &cobra.Command{
		Use:           "tagcloud",
		Short:         "Build word tag clouds from text and HTML documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			// stdout carries command output.
			logger.SetupWriter(os.Stderr, level, "text")
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine progress to stderr")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newTopCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
