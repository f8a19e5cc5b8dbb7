// Package jsonl is the SyncBridge of spec §4.4: it converts the durable
// store to and from newline-delimited JSON under a repository's .tasks/
// directory, the shareable format the store's tasks.db is exported to and
// re-imported from (spec §6, grounded on the teacher's internal/jsonl
// reader and cmd/bd/sync_export.go/sync_import.go).
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/taskgraph/tg/internal/types"
)

// maxLineBytes matches the teacher's reader.go allowance for large
// single-line records (a task with a long description or many comments).
const maxLineBytes = 64 * 1024 * 1024

// ReadTasksFromFile reads one types.Task per non-empty line of path.
// types.Task's json tags, together with Priority's own
// MarshalJSON/UnmarshalJSON, already match the tasks.jsonl wire schema
// of spec §6 (priority as its string name, not its ordinal), so no
// intermediate DTO is needed.
func ReadTasksFromFile(path string) ([]*types.Task, error) {
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	return ReadTasksFromData(data)
}

// ReadTasksFromData parses JSONL task data already in memory.
func ReadTasksFromData(data []byte) ([]*types.Task, error) {
	var tasks []*types.Task
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var t types.Task
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("parse task at line %d: %w", lineNum, err)
		}
		tasks = append(tasks, &t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan tasks.jsonl: %w", err)
	}
	return tasks, nil
}

// ReadDependenciesFromFile reads one types.Dependency per non-empty line.
func ReadDependenciesFromFile(path string) ([]*types.Dependency, error) {
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	return ReadDependenciesFromData(data)
}

// ReadDependenciesFromData parses JSONL dependency data already in memory.
func ReadDependenciesFromData(data []byte) ([]*types.Dependency, error) {
	var deps []*types.Dependency
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var d types.Dependency
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, fmt.Errorf("parse dependency at line %d: %w", lineNum, err)
		}
		deps = append(deps, &d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan dependencies.jsonl: %w", err)
	}
	return deps, nil
}

// readFileOrEmpty treats a missing file as empty data rather than an
// error, matching the cold-start protocol's "no JSONL files" case.
func readFileOrEmpty(path string) ([]byte, error) {
	// #nosec G304 - path is a caller-controlled .tasks/ location, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
