// Command tg is the CLI front end for the task-graph engine (spec §1,
// §6). It is grounded on the teacher's cmd/bd: one cobra root command,
// persistent flags for the database path/actor/JSON output, and a
// PersistentPreRun that resolves the repository's .tasks directory,
// loads its config, and opens the engine before any subcommand runs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg"
	"github.com/taskgraph/tg/internal/config"
	"github.com/taskgraph/tg/internal/debug"
	"github.com/taskgraph/tg/internal/jsonl"
	"github.com/taskgraph/tg/internal/telemetry"
)

var (
	dbPathFlag  string
	actorFlag   string
	jsonOutput  bool
	otelFlag    bool
	verboseFlag bool
	quietFlag   bool

	rootCtx       context.Context
	telemetryStop telemetry.Shutdown

	engine *tg.Engine
	bridge *jsonl.Bridge
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tg",
	Short: "tg - dependency-aware task graph for agent sessions",
	Long: `tg tracks work as a graph of tasks linked by typed dependency
edges, keeps a single current-task pointer, and exports its state to
newline-delimited JSON so it can be reviewed and merged like any other
file in the repository.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}

		rootCtx = context.Background()

		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		root := config.FindRepoRoot(cwd)
		if root == "" {
			root = cwd
		}
		dir := cmd.Flags().Lookup("dir")
		tasksDir := root + "/.tasks"
		if dir != nil && dir.Value.String() != "" {
			tasksDir = dir.Value.String()
		}

		if err := os.MkdirAll(tasksDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", tasksDir, err)
		}

		cfg, err = config.Load(tasksDir)
		if err != nil {
			return err
		}

		dbPath := cfg.DBPath
		if dbPathFlag != "" {
			dbPath = dbPathFlag
		}

		switch cfg.Backend {
		case config.BackendDolt:
			engine, err = openDoltEngine(rootCtx, dbPath, currentActor())
		default:
			engine, err = tg.Open(rootCtx, dbPath)
		}
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}

		bridge = jsonl.New(tasksDir)
		if _, _, err := bridge.ColdStart(rootCtx, engine.Store); err != nil {
			return fmt.Errorf("cold start: %w", err)
		}

		if otelFlag {
			stop, err := telemetry.Init(10 * time.Second)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			telemetryStop = stop
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryStop != nil {
			if err := telemetryStop(rootCtx); err != nil {
				fmt.Fprintf(os.Stderr, "tg: telemetry shutdown: %v\n", err)
			}
		}
		if engine == nil {
			return nil
		}
		if bridge != nil {
			if err := bridge.ExportIncremental(rootCtx, engine.Store); err != nil {
				return fmt.Errorf("export: %w", err)
			}
		}
		return engine.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database path (default: .tasks/tasks.db under the repo root)")
	rootCmd.PersistentFlags().String("dir", "", ".tasks directory to use (default: discovered by walking up from cwd)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "actor name recorded on comments (default: config's default_actor)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&otelFlag, "otel", false, "emit scheduler metrics to stdout via OpenTelemetry")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-essential output")
}

func currentActor() string {
	if actorFlag != "" {
		return actorFlag
	}
	if cfg != nil && cfg.DefaultActor != "" {
		return cfg.DefaultActor
	}
	return "agent"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
