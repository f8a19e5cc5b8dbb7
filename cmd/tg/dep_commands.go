package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges between tasks",
}

var depType string

var depAddCmd = &cobra.Command{
	Use:   "add <src> <dst>",
	Short: "Add a dependency edge (src blocks/parents/relates-to dst)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseDepType(depType)
		if err != nil {
			return err
		}
		return engine.AddDependency(rootCtx, args[0], args[1], t)
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <src> <dst>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseDepType(depType)
		if err != nil {
			return err
		}
		return engine.RemoveDependency(rootCtx, args[0], args[1], t)
	},
}

func parseDepType(s string) (tg.DependencyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blocks":
		return tg.DepBlocks, nil
	case "parent":
		return tg.DepParent, nil
	case "related":
		return tg.DepRelated, nil
	case "provenance":
		return tg.DepProvenance, nil
	default:
		return "", fmt.Errorf("invalid dependency type %q", s)
	}
}

func init() {
	depAddCmd.Flags().StringVar(&depType, "type", "blocks", "dependency type (blocks, parent, related, provenance)")
	depRmCmd.Flags().StringVar(&depType, "type", "blocks", "dependency type (blocks, parent, related, provenance)")
	depCmd.AddCommand(depAddCmd, depRmCmd)
	rootCmd.AddCommand(depCmd)
}
