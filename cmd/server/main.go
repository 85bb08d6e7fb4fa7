// Package main is the entry point for the recipebox server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (flags, env vars, config file)
// 2. Create dependencies (logger, database pool)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, ...). The commands themselves are in root.go.
//
// USAGE:
//
//	recipebox                   # same as "recipebox serve"
//	recipebox serve --port 8080
//	recipebox migrate up|down|status
//	recipebox --config recipebox.yaml serve
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
