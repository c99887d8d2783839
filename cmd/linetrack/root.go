package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvisser/linetrack/internal/logger"
)

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:     "linetrack",
		Short:   "Track line status of version-controlled files",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Config{Level: logLevel})
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(statusCmd())
	cmd.AddCommand(watchCmd())

	return cmd
}
