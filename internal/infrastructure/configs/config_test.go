package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Host != "127.0.0.1" || cfg.HTTP.Port != 7380 {
		t.Fatalf("http = %s:%d, want 127.0.0.1:7380", cfg.HTTP.Host, cfg.HTTP.Port)
	}
	if cfg.Session.JoinCooldown != time.Second {
		t.Fatalf("join cooldown = %s, want 1s", cfg.Session.JoinCooldown)
	}
	if cfg.Session.JoinTimeout != 10*time.Second {
		t.Fatalf("join timeout = %s, want 10s", cfg.Session.JoinTimeout)
	}
	if cfg.Session.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.Session.MaxAttempts)
	}
	if cfg.Catalog.RefreshThrottle != 3*time.Second {
		t.Fatalf("refresh throttle = %s, want 3s", cfg.Catalog.RefreshThrottle)
	}
	if cfg.Notifications.Capacity != 10 || cfg.Notifications.DefaultVisible != 3 {
		t.Fatalf("notifications = %+v", cfg.Notifications)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("http:\n  port: 9000\nsession:\n  max_attempts: 5\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.HTTP.Port)
	}
	if cfg.Session.MaxAttempts != 5 {
		t.Fatalf("max attempts = %d, want 5", cfg.Session.MaxAttempts)
	}
	// untouched keys keep their defaults
	if cfg.HTTP.Host != "127.0.0.1" {
		t.Fatalf("host = %q, want default", cfg.HTTP.Host)
	}
}

func TestEnvOverridesBeatDefaults(t *testing.T) {
	t.Setenv("VOICE_CONTROL_URL", "ws://10.0.0.5:9480/control")
	t.Setenv("SESSION_JOIN_COOLDOWN_MS", "250")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Voice.ControlURL != "ws://10.0.0.5:9480/control" {
		t.Fatalf("control url = %q", cfg.Voice.ControlURL)
	}
	if cfg.Session.JoinCooldown != 250*time.Millisecond {
		t.Fatalf("join cooldown = %s, want 250ms", cfg.Session.JoinCooldown)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("missing file accepted")
	}
}
