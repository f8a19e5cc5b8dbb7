//go:build !cgo

package main

import (
	"context"
	"fmt"

	"github.com/taskgraph/tg"
)

// openDoltEngine reports that Dolt support requires CGO, matching the
// teacher's nocgo stub commands for the same backend.
func openDoltEngine(ctx context.Context, dbPath, actor string) (*tg.Engine, error) {
	return nil, fmt.Errorf("backend \"dolt\" requires CGO; rebuild with CGO_ENABLED=1 or set backend = \"sqlite\" in config.toml")
}
