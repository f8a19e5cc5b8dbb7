// tg watch runs internal/jsonl.Watcher in the foreground until
// interrupted, grounded on the teacher's cmd/bd/main.go
// signal.NotifyContext shutdown pattern.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg/internal/debug"
	"github.com/taskgraph/tg/internal/jsonl"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-import the JSONL mirror whenever it changes on disk, until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		w := jsonl.NewWatcher(bridge, engine.Store, func(err error) {
			fmt.Fprintf(os.Stderr, "tg watch: %v\n", err)
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if !debug.IsQuiet() {
			fmt.Printf("watching %s\n", bridge.Dir)
		}
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
