package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kvisser/linetrack/internal/vcs"
	"github.com/kvisser/linetrack/internal/vcs/git"
)

var (
	statusColors = map[vcs.Status]*color.Color{
		vcs.StatusUnmodified: color.New(color.FgHiBlack),
		vcs.StatusModified:   color.New(color.FgYellow),
		vcs.StatusAdded:      color.New(color.FgGreen),
		vcs.StatusDeleted:    color.New(color.FgRed),
		vcs.StatusUnknown:    color.New(color.FgCyan),
		vcs.StatusIgnored:    color.New(color.FgHiBlack),
	}
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <file>...",
		Short: "Classify files against their version-controlled base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := vcs.NewRegistry()
			registry.Register(git.NewBackend())

			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return err
				}

				backend := registry.For(path)
				if backend == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: no version control\n", arg)
					continue
				}

				status, err := backend.FileStatus(path)
				if err != nil {
					return fmt.Errorf("classify %s: %w", arg, err)
				}

				c := statusColors[status]
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", arg, c.Sprint(status.String()))
			}
			return nil
		},
	}
}
