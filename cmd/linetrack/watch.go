package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kvisser/linetrack/internal/buffer"
	"github.com/kvisser/linetrack/internal/linestatus"
	"github.com/kvisser/linetrack/internal/tracker"
	"github.com/kvisser/linetrack/internal/vcs"
	"github.com/kvisser/linetrack/internal/vcs/git"
	"github.com/kvisser/linetrack/internal/watch"
)

var trackerStateColors = map[tracker.State]*color.Color{
	tracker.StateUninitialized: color.New(color.FgHiBlack),
	tracker.StateInitialized:   color.New(color.FgGreen),
	tracker.StateLoadFailed:    color.New(color.FgRed),
	tracker.StateReleased:      color.New(color.FgHiBlack),
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>...",
		Short: "Open files as buffers and report tracker state as they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			registry := vcs.NewRegistry()
			gitBackend := git.NewBackend()
			registry.Register(gitBackend)

			documents := buffer.NewDocumentManager()

			factory := tracker.Factory(tracker.WithStateChangeFunc(func(path string, state tracker.State) {
				c := trackerStateColors[state]
				fmt.Fprintf(out, "%s: %s\n", path, c.Sprint(state.String()))
			}))

			manager := linestatus.NewManager(documents, registry, factory)
			defer manager.Dispose()
			documents.SetEditorListener(manager)

			watcher, err := watch.New(func(path string) {
				gitBackend.InvalidateStatusCaches()
				manager.FileContentsChanged(path)
			})
			if err != nil {
				return fmt.Errorf("start file watcher: %w", err)
			}
			defer watcher.Close()

			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return err
				}

				doc, err := documents.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", arg, err)
				}
				documents.CreateEditor(doc)

				if err := watcher.Add(path); err != nil {
					return fmt.Errorf("watch %s: %w", arg, err)
				}
			}

			fmt.Fprintf(out, "watching %d file(s), ^C to stop\n", len(args))

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			stats := manager.Stats()
			fmt.Fprintf(out, "\ntrackers=%d loads=%d coalesced=%d applies=%d skipped=%d\n",
				stats.TrackersInstalled, stats.Queue.Executed, stats.Queue.Replaced,
				stats.AppliesInvoked, stats.AppliesSkipped)
			return nil
		},
	}
}
