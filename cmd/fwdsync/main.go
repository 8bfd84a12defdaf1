// Package main provides the entry point for the fwdsync CLI tool.
package main

import "github.com/forwardops/fwdsync/cmd/fwdsync/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.Execute(version, commit)
}
