package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/loopcast/loopcast/pkg/audio/codec/mp3"
	"github.com/loopcast/loopcast/pkg/jsontime"
)

func TestLoad_MissingFileIsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "port: 8080\nsource: \"tone:440\"\nwrite_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Port = 8080
	want.Source = "tone:440"
	want.WriteTimeout = jsontime.Duration(2 * time.Second)
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.MP3Bitrate = 320
	cfg.AutoStart = false
	cfg.Device = "Monitor of Built-in Audio"
	cfg.OpusFrameMS = 2.5

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "write_timeout: 10s") {
		t.Errorf("duration not written as string:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mp3_bitrate: 100\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, mp3.ErrUnsupportedBitrate) {
		t.Fatalf("Load error = %v, want ErrUnsupportedBitrate", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"mp3 bitrate", func(c *Config) { c.MP3Bitrate = 100 }},
		{"opus bitrate", func(c *Config) { c.OpusBitrate = 1000 }},
		{"opus frame", func(c *Config) { c.OpusFrameMS = 15 }},
		{"source", func(c *Config) { c.Source = "mic" }},
		{"resampler", func(c *Config) { c.Resampler = "cubic" }},
		{"queue depth", func(c *Config) { c.QueueDepth = 0 }},
		{"write timeout", func(c *Config) { c.WriteTimeout = 0 }},
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSet(t *testing.T) {
	cfg := Default()
	steps := []struct{ key, value string }{
		{"port", "4000"},
		{"auto_start", "false"},
		{"opus_frame_ms", "20"},
		{"device", "monitor"},
		{"write_timeout", "3s"},
		{"resampler", "hq"},
	}
	for _, s := range steps {
		if err := cfg.Set(s.key, s.value); err != nil {
			t.Fatalf("Set(%s, %s): %v", s.key, s.value, err)
		}
	}
	if cfg.Port != 4000 || cfg.AutoStart || cfg.OpusFrameMS != 20 ||
		cfg.Device != "monitor" || cfg.WriteTimeout != jsontime.Duration(3*time.Second) || cfg.Resampler != "hq" {
		t.Errorf("unexpected config after Set: %+v", cfg)
	}
}

func TestSet_LeavesConfigOnError(t *testing.T) {
	cfg := Default()
	for _, kv := range [][2]string{
		{"port", "abc"},
		{"port", "-1"},
		{"mp3_bitrate", "100"},
		{"nope", "1"},
	} {
		if err := cfg.Set(kv[0], kv[1]); err == nil {
			t.Errorf("Set(%s, %s) succeeded", kv[0], kv[1])
		}
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config changed by failed Set (-want +got):\n%s", diff)
	}
}

func TestKeysCoverTable(t *testing.T) {
	_, rows := Default().Table()
	keys := Keys()
	if len(rows) != len(keys) {
		t.Fatalf("table has %d rows, %d keys", len(rows), len(keys))
	}
	for _, row := range rows {
		if err := Default().Set(row[0], row[1]); err != nil {
			t.Errorf("Set(%s, %s): %v", row[0], row[1], err)
		}
	}
}
