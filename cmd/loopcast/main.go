// Package main is the entry point for the loopcast CLI.
//
// Usage:
//
//	loopcast [flags] <command> [args]
//
// Commands:
//
//	serve    - Capture system audio and stream it over HTTP and WebSocket
//	devices  - List audio input devices
//	status   - Query a running server
//	config   - Show or change the configuration file
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/loopcast/loopcast/cmd/loopcast/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
