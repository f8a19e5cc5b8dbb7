package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg"
	"github.com/taskgraph/tg/internal/debug"
	"github.com/taskgraph/tg/internal/facade"
)

var (
	createPriority string
	createType     string
	createLabels   []string
	createParent   string
	createBlockers []string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := facade.CreateTaskParams{Title: args[0]}
		priority := createPriority
		if priority == "" && cfg != nil {
			priority = cfg.DefaultPriority
		}
		if priority != "" {
			p, err := tg.ParsePriority(priority)
			if err != nil {
				return err
			}
			params.Priority = &p
		}
		if createType != "" {
			t := tg.TaskType(strings.ToLower(createType))
			params.TaskType = &t
		}
		if createParent != "" {
			params.ParentID = &createParent
		}
		params.Labels = createLabels
		params.MustCompleteFirst = createBlockers

		id, err := engine.CreateTask(rootCtx, params)
		if err != nil {
			return err
		}
		return printCreated(id)
	},
}

func printCreated(id string) error {
	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"id": id})
	}
	debug.PrintNormal("created %s\n", id)
	return nil
}

var startCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Set the current task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.SetCurrentTask(rootCtx, args[0])
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Complete a task and cascade-unblock its dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := engine.CompleteTask(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		debug.PrintNormal("completed %s\n", result.ID)
		for _, u := range result.Unblocked {
			debug.PrintNormal("unblocked %s\n", u)
		}
		return nil
	},
}

var blockReason string

var blockCmd = &cobra.Command{
	Use:   "block <id>",
	Short: "Mark a task blocked with an explanatory comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.BlockTask(rootCtx, args[0], currentActor(), blockReason)
	},
}

var (
	lsStatus    string
	lsReadyOnly bool
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := tg.ListFilter{ReadyOnly: lsReadyOnly}
		if lsStatus != "" {
			filter.Status = tg.Status(lsStatus)
		}
		tasks, err := engine.ListTasks(rootCtx, filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(tasks)
		}
		renderTaskList(tasks)
		return nil
	},
}

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := engine.GetTask(rootCtx, args[0])
		if err != nil {
			return err
		}
		return renderTask(task, showFormat)
	},
}

func init() {
	createCmd.Flags().StringVar(&createPriority, "priority", "", "priority (critical, high, medium, low, wishlist)")
	createCmd.Flags().StringVar(&createType, "type", "", "task type (task, bug, feature, research, ephemeral, container)")
	createCmd.Flags().StringSliceVar(&createLabels, "label", nil, "label (repeatable)")
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent task id")
	createCmd.Flags().StringSliceVar(&createBlockers, "blocked-by", nil, "task ids that must complete first (repeatable)")

	blockCmd.Flags().StringVar(&blockReason, "reason", "", "why the task is blocked")

	lsCmd.Flags().StringVar(&lsStatus, "status", "", "filter by status")
	lsCmd.Flags().BoolVar(&lsReadyOnly, "ready", false, "only tasks with no open blockers")

	showCmd.Flags().StringVar(&showFormat, "format", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(createCmd, startCmd, doneCmd, blockCmd, lsCmd, showCmd)
}
