package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/taskgraph/tg"
)

// Status colors grounded on the teacher's cmd/alex/tui_styles.go palette
// (ANSI 256 indices for gray/green/red/cyan).
var (
	styleStatusDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleStatusBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleStatusActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleDim           = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func styleForStatus(s tg.Status) lipgloss.Style {
	switch s {
	case tg.StatusCompleted:
		return styleStatusDone
	case tg.StatusBlocked:
		return styleStatusBlocked
	case tg.StatusInProgress:
		return styleStatusActive
	default:
		return styleDim
	}
}

func renderTaskList(tasks []*tg.Task) {
	for _, t := range tasks {
		status := styleForStatus(t.Status).Render(string(t.Status))
		fmt.Printf("%s\t[%s]\t%s\t%s\n", t.ID, t.Priority, status, t.Title)
	}
}

func renderTask(task *tg.Task, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(task)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(task)
	default:
		fmt.Printf("%s %s\n", styleForStatus(task.Status).Render(string(task.Status)), styleDim.Render(string(task.Priority)))
		fmt.Println(task.Title)
		if task.Description != nil {
			fmt.Println(*task.Description)
		}
		for _, c := range task.Comments {
			fmt.Printf("  - [%s] %s\n", c.Agent, c.Content)
		}
		return nil
	}
}
