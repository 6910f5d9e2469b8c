package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopcast/loopcast/cmd/loopcast/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatFlag != "table" {
			return output(build.Get())
		}
		fmt.Fprintln(os.Stdout, build.String())
		if IsVerbose() {
			fmt.Fprintf(os.Stdout, "  go:     %s\n", build.Get().Go)
			if path, err := resolveConfigPath(); err == nil {
				fmt.Fprintf(os.Stdout, "  config: %s\n", path)
			} else {
				fmt.Fprintf(os.Stdout, "  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	addOutputFlag(versionCmd)
	rootCmd.AddCommand(versionCmd)
}
