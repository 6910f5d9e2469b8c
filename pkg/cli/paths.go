package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigFile is the config file name inside the app directory.
const DefaultConfigFile = "config.yaml"

// Paths resolves where an application keeps its files.
type Paths struct {
	// AppName is the application name.
	AppName string

	// Dir is the app directory. It is <os.UserConfigDir()>/<AppName>
	// unless overridden through <APPNAME>_CONFIG_DIR.
	Dir string
}

// EnvOverride returns the environment variable that overrides the app
// directory, e.g. LOOPCAST_CONFIG_DIR.
func EnvOverride(appName string) string {
	name := strings.ToUpper(strings.ReplaceAll(appName, "-", "_"))
	return name + "_CONFIG_DIR"
}

// NewPaths resolves the directory for appName.
func NewPaths(appName string) (*Paths, error) {
	if dir := os.Getenv(EnvOverride(appName)); dir != "" {
		return &Paths{AppName: appName, Dir: dir}, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &Paths{
		AppName: appName,
		Dir:     filepath.Join(base, appName),
	}, nil
}

// ConfigFile returns the config file path (<dir>/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.Dir, DefaultConfigFile)
}

// EnsureDir creates the app directory if it doesn't exist.
func (p *Paths) EnsureDir() error {
	return os.MkdirAll(p.Dir, 0755)
}
