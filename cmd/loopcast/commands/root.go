package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopcast/loopcast/cmd/loopcast/internal/config"
	"github.com/loopcast/loopcast/pkg/cli"
)

var (
	// Global flags
	verbose    bool
	configPath string
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "loopcast",
	Short: "Stream system audio to browsers",
	Long: `loopcast - capture what the computer is playing and stream it live.

Listeners connect with a browser or any HTTP audio client:
  /stream.mp3   progressive MP3
  /stream.ogg   Ogg/Opus
  /ws           Opus packets over WebSocket
  /status       {"clients": N, "running": bool}

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/loopcast/config.yaml
  Linux:   ~/.config/loopcast/config.yaml
  Windows: %AppData%/loopcast/config.yaml

Set LOOPCAST_CONFIG_DIR to use another directory, and LOOPCAST_LOG to
debug, info, warn or error to change the log level.

Examples:
  # Stream the default input on port 3000
  loopcast serve

  # Capture a PulseAudio monitor source
  loopcast serve --device monitor

  # Persist a setting
  loopcast config set mp3_bitrate 320`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <config dir>/loopcast/config.yaml)")
}

func setupLogger(cmd *cobra.Command, args []string) error {
	logger, err := cli.NewLogger(os.Stderr, verbose, os.Getenv("LOOPCAST_LOG"))
	if err != nil {
		return fmt.Errorf("LOOPCAST_LOG: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

// resolveConfigPath returns the --config value or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Path()
}

// loadConfig loads the configuration file, falling back to defaults when it
// does not exist.
func loadConfig() (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// addOutputFlag registers --output on cmd.
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&formatFlag, "output", "o", "table", "output format (table, yaml, json)")
}

// output renders result in the --output format on stdout.
func output(result any) error {
	format, err := cli.ParseOutputFormat(formatFlag)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{Format: format, Writer: os.Stdout})
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
