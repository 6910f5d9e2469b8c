// Package cli provides common helpers for the loopcast command-line tool.
//
// This package includes:
//   - Configuration directory resolution
//   - Output formatting (JSON, YAML, table)
//   - Logger setup from flags and environment
//   - Framed terminal rendering with lipgloss
//
// Example usage:
//
//	paths, err := cli.NewPaths("loopcast")
//	logger, err := cli.NewLogger(os.Stderr, verbose, os.Getenv("LOOPCAST_LOG"))
//
//	cli.Output(status, cli.OutputOptions{
//	    Format: cli.FormatTable,
//	})
package cli
