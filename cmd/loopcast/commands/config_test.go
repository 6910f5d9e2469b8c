package commands

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/loopcast/loopcast/cmd/loopcast/internal/config"
)

func TestConfigPath(t *testing.T) {
	dir := setupTestEnv(t)

	stdout, _, code := runCmd(t, "config", "path")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if want := filepath.Join(dir, "config.yaml"); strings.TrimSpace(stdout) != want {
		t.Fatalf("path = %q, want %q", stdout, want)
	}
}

func TestConfigSetThenShow(t *testing.T) {
	dir := setupTestEnv(t)

	stdout, _, code := runCmd(t, "config", "set", "port", "8123")
	if code != 0 {
		t.Fatalf("set exit %d", code)
	}
	if !strings.Contains(stdout, "port = 8123") {
		t.Fatalf("unexpected set output: %s", stdout)
	}

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8123 {
		t.Fatalf("saved port = %d, want 8123", cfg.Port)
	}

	stdout, _, code = runCmd(t, "config", "show", "-o", "yaml")
	if code != 0 {
		t.Fatalf("show exit %d", code)
	}
	if !strings.Contains(stdout, "port: 8123") {
		t.Fatalf("show lacks port: %s", stdout)
	}

	stdout, _, code = runCmd(t, "config", "show")
	if code != 0 {
		t.Fatalf("show exit %d", code)
	}
	if !strings.Contains(stdout, "KEY") || !strings.Contains(stdout, "8123") {
		t.Fatalf("table lacks port: %s", stdout)
	}
}

func TestConfigSetRejectsBitrate(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "config", "set", "mp3_bitrate", "100")
	if code == 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(stderr, "unsupported bitrate") {
		t.Fatalf("unexpected error: %s", stderr)
	}
}

func TestConfigExplicitFile(t *testing.T) {
	setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "alt.yaml")

	if _, stderr, code := runCmd(t, "--config", path, "config", "set", "auto_start", "false"); code != 0 {
		t.Fatalf("set failed: %s", stderr)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AutoStart {
		t.Fatal("auto_start not saved to --config file")
	}
}
