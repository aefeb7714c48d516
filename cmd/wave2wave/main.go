// Package main provides the wave2wave CLI.
//
// Usage:
//
//	wave2wave [flags] <command> [args]
//
// Commands:
//
//	process     - Run one audio file through a local or remote model
//	echo-server - Serve a stub remote inference endpoint
//	graphs      - List built-in graphs
package main

import (
	"fmt"
	"os"

	"github.com/TEAMuP-dev/HARP-sub001/cmd/wave2wave/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
