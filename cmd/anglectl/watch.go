package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 150 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var flags problemFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-derive a problem document every time it is saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.file == "" {
				return fmt.Errorf("--problem is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			show := func() {
				s, err := flags.session(os.ReadFile)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", flags.file, err)
					return
				}
				if err := printScene(out, s.Snapshot(), flags.asJSON); err != nil {
					fmt.Fprintf(out, "%s: %v\n", flags.file, err)
				}
			}

			show()
			return watchFile(ctx, flags.file, watchDebounce, show)
		},
	}
	flags.register(cmd)
	return cmd
}

// watchFile calls onChange after path is written, debounced, until ctx is
// done. The parent directory is watched so editors that replace the file on
// save keep triggering. onChange runs on the caller's goroutine.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			onChange()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", abs, err)
		}
	}
}
