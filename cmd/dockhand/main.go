// Package main is the entry point for the dockhand CLI.
//
// The binary packages a Python trading bot into a container image and
// manages its local lifecycle and platform logs. All behavior lives in
// internal/cli; main only injects build metadata and hands control to the
// root command.
package main

import (
	"github.com/shinji-kodama/dockhand/internal/cli"
)

// Build metadata, overridden at release time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
