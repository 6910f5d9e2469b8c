// Package config loads and stores the loopcast configuration file.
//
// The file lives at <os.UserConfigDir()>/loopcast/config.yaml, or under
// $LOOPCAST_CONFIG_DIR when set:
//
//	port: 3000
//	mp3_bitrate: 192
//	opus_bitrate: 128
//	opus_frame_ms: 10
//	auto_start: true
//	device: ""
//	source: device
//	resampler: linear
//	queue_depth: 64
//	write_timeout: 10s
//
// Missing keys keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/loopcast/loopcast/pkg/audio/capture"
	"github.com/loopcast/loopcast/pkg/audio/codec/mp3"
	"github.com/loopcast/loopcast/pkg/audio/codec/opus"
	"github.com/loopcast/loopcast/pkg/audio/resampler"
	"github.com/loopcast/loopcast/pkg/cli"
	"github.com/loopcast/loopcast/pkg/jsontime"
)

// AppName names the config directory.
const AppName = "loopcast"

// Config is the persisted server configuration.
type Config struct {
	Port         int               `json:"port" yaml:"port"`
	MP3Bitrate   int               `json:"mp3_bitrate" yaml:"mp3_bitrate"`
	OpusBitrate  int               `json:"opus_bitrate" yaml:"opus_bitrate"`
	OpusFrameMS  float64           `json:"opus_frame_ms" yaml:"opus_frame_ms"`
	AutoStart    bool              `json:"auto_start" yaml:"auto_start"`
	Device       string            `json:"device" yaml:"device"`
	Source       string            `json:"source" yaml:"source"`
	Resampler    string            `json:"resampler" yaml:"resampler"`
	QueueDepth   int               `json:"queue_depth" yaml:"queue_depth"`
	WriteTimeout jsontime.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:         3000,
		MP3Bitrate:   int(mp3.DefaultBitrate),
		OpusBitrate:  int(opus.DefaultBitrate),
		OpusFrameMS:  10,
		AutoStart:    true,
		Source:       string(capture.KindDevice),
		Resampler:    string(resampler.KindLinear),
		QueueDepth:   64,
		WriteTimeout: jsontime.Duration(10 * time.Second),
	}
}

// Path returns the default config file path.
func Path() (string, error) {
	paths, err := cli.NewPaths(AppName)
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return paths.ConfigFile(), nil
}

// Load reads the config file at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save validates c and writes it to path, creating the directory.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field against what the pipeline accepts.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := mp3.ParseBitrate(c.MP3Bitrate); err != nil {
		return err
	}
	if _, err := opus.ParseBitrate(c.OpusBitrate); err != nil {
		return err
	}
	if _, err := opus.ParseFrameDuration(c.OpusFrameMS); err != nil {
		return err
	}
	if _, err := capture.ParseSpec(c.Source); err != nil {
		return err
	}
	if _, err := resampler.ParseKind(c.Resampler); err != nil {
		return err
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue_depth must be positive, got %d", c.QueueDepth)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got %s", time.Duration(c.WriteTimeout))
	}
	return nil
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(c *Config, v string) error{
	"port":          intSetter(func(c *Config) *int { return &c.Port }),
	"mp3_bitrate":   intSetter(func(c *Config) *int { return &c.MP3Bitrate }),
	"opus_bitrate":  intSetter(func(c *Config) *int { return &c.OpusBitrate }),
	"opus_frame_ms": setFrameMS,
	"auto_start":    setAutoStart,
	"device":        func(c *Config, v string) error { c.Device = v; return nil },
	"source":        func(c *Config, v string) error { c.Source = v; return nil },
	"resampler":     func(c *Config, v string) error { c.Resampler = v; return nil },
	"queue_depth":   intSetter(func(c *Config) *int { return &c.QueueDepth }),
	"write_timeout": func(c *Config, v string) error { return c.WriteTimeout.UnmarshalText([]byte(v)) },
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setFrameMS(c *Config, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	c.OpusFrameMS = f
	return nil
}

func setAutoStart(c *Config, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	c.AutoStart = b
	return nil
}

// Set assigns the string value to key and validates the result. On error c
// is left unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key %q (want one of %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Table implements cli.Tabular.
func (c *Config) Table() ([]string, [][]string) {
	rows := [][]string{
		{"port", strconv.Itoa(c.Port)},
		{"mp3_bitrate", strconv.Itoa(c.MP3Bitrate)},
		{"opus_bitrate", strconv.Itoa(c.OpusBitrate)},
		{"opus_frame_ms", strconv.FormatFloat(c.OpusFrameMS, 'f', -1, 64)},
		{"auto_start", strconv.FormatBool(c.AutoStart)},
		{"device", c.Device},
		{"source", c.Source},
		{"resampler", c.Resampler},
		{"queue_depth", strconv.Itoa(c.QueueDepth)},
		{"write_timeout", time.Duration(c.WriteTimeout).String()},
	}
	return []string{"KEY", "VALUE"}, rows
}
