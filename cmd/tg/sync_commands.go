// tg sync and tg land wrap internal/jsonl.Bridge's Export/Import so the
// on-disk JSONL mirror can be driven by hand instead of only at process
// exit. land additionally stages and commits the mirror, grounded on
// the teacher's internal/git exec.Command("git", ...) pattern.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg/internal/debug"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import any externally edited JSONL files, then re-export the current state",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := bridge.Import(rootCtx, engine.Store)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if err := bridge.Export(rootCtx, engine.Store); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		if debug.Enabled() {
			debug.Printf("sync: bridge directory %s\n", bridge.Dir)
		}
		debug.PrintNormal("imported %d tasks, %d dependencies\n", result.NewTasks, result.NewDependencies)
		return nil
	},
}

var landMessage string

var landCmd = &cobra.Command{
	Use:   "land",
	Short: "Export the current state and commit the .tasks mirror to git",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bridge.Export(rootCtx, engine.Store); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := gitAddCommit(bridge.Dir, landMessage); err != nil {
			return err
		}
		debug.PrintlnNormal("landed")
		return nil
	},
}

// gitAddCommit stages dir and commits it, skipping the commit (not an
// error) when there is nothing staged to commit.
func gitAddCommit(dir, message string) error {
	add := exec.Command("git", "add", dir)
	add.Stdout, add.Stderr = os.Stdout, os.Stderr
	if err := add.Run(); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	diff := exec.Command("git", "diff", "--cached", "--quiet", "--", dir)
	if err := diff.Run(); err == nil {
		debug.PrintlnNormal("nothing to land")
		return nil
	}

	if message == "" {
		message = "tg: sync task graph"
	}
	commit := exec.Command("git", "commit", "-m", message, "--", dir)
	commit.Stdout, commit.Stderr = os.Stdout, os.Stderr
	if err := commit.Run(); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

func init() {
	landCmd.Flags().StringVar(&landMessage, "message", "", "commit message (default: \"tg: sync task graph\")")
	rootCmd.AddCommand(syncCmd, landCmd)
}
