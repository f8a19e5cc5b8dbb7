// tg config init/show manage .tasks/config.toml directly, grounded on
// the teacher's cmd/bd/config.go subcommand family (configSetCmd et al.)
// but scoped to this package's flat settings file instead of beads'
// per-key database-backed config store.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize .tasks/config.toml",
}

var configInitBackend string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the resolved configuration to .tasks/config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInitBackend != "" {
			backend := config.Backend(configInitBackend)
			if backend != config.BackendSQLite && backend != config.BackendDolt {
				return fmt.Errorf("invalid backend %q (want sqlite or dolt)", configInitBackend)
			}
			cfg.Backend = backend
		}
		return config.Save(cfg)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(cfg)
		}
		fmt.Printf("backend:           %s\n", cfg.Backend)
		fmt.Printf("db_path:           %s\n", cfg.DBPath)
		fmt.Printf("default_priority:  %s\n", cfg.DefaultPriority)
		fmt.Printf("default_actor:     %s\n", cfg.DefaultActor)
		fmt.Printf("custom_statuses:   %v\n", cfg.CustomStatuses)
		fmt.Printf("custom_task_types: %v\n", cfg.CustomTaskTypes)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitBackend, "backend", "", "storage backend to record (sqlite or dolt)")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
