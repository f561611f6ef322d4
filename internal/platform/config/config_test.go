package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"ANGLE_THRESHOLD", "FRAME_THRESHOLD", "COOLDOWN_SECONDS", "REPORT_INTERVAL_HOURS", "PORT"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.AngleThreshold != 35 {
		t.Errorf("AngleThreshold = %v, want 35", cfg.AngleThreshold)
	}
	if cfg.FrameThreshold != 15 {
		t.Errorf("FrameThreshold = %d, want 15", cfg.FrameThreshold)
	}
	if cfg.Cooldown != 60*time.Second {
		t.Errorf("Cooldown = %v, want 60s", cfg.Cooldown)
	}
	if cfg.ReportInterval != time.Hour {
		t.Errorf("ReportInterval = %v, want 1h", cfg.ReportInterval)
	}
	if cfg.Addr() != "0.0.0.0:8085" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
}

func TestFromEnv_overrides(t *testing.T) {
	t.Setenv("ANGLE_THRESHOLD", "40.5")
	t.Setenv("FRAME_THRESHOLD", "10")
	t.Setenv("COOLDOWN_SECONDS", "5")
	t.Setenv("REPORT_INTERVAL_HOURS", "0")
	t.Setenv("HTTP_TIMEOUT", "2s")

	cfg := FromEnv()
	if cfg.AngleThreshold != 40.5 || cfg.FrameThreshold != 10 {
		t.Errorf("thresholds: %v %d", cfg.AngleThreshold, cfg.FrameThreshold)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Errorf("Cooldown = %v", cfg.Cooldown)
	}
	if cfg.ReportInterval != 0 {
		t.Errorf("ReportInterval = %v, want disabled", cfg.ReportInterval)
	}
	if cfg.HTTPTimeout != 2*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
}

func TestGetEnvDuration_bare_seconds(t *testing.T) {
	t.Setenv("X_DURATION", "1.5")
	if got := GetEnvDuration("X_DURATION", 0); got != 1500*time.Millisecond {
		t.Errorf("got %v, want 1.5s", got)
	}
	t.Setenv("X_DURATION", "soon")
	if got := GetEnvDuration("X_DURATION", time.Minute); got != time.Minute {
		t.Errorf("invalid value should fall back, got %v", got)
	}
}

func TestIsPlaceholder(t *testing.T) {
	cases := map[string]bool{
		"":                           true,
		"   ":                        true,
		"在這裡貼上你的 Channel Access Token": true,
		"YOUR_API_KEY":               true,
		"<token>":                    true,
		"changeme":                   true,
		"abc123":                     false,
	}
	for v, want := range cases {
		if got := IsPlaceholder(v); got != want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestLoad_dotenv_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("FALL_MONITOR_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FALL_MONITOR_TEST_KEY") })

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetEnv("FALL_MONITOR_TEST_KEY", ""); got != "from-file" {
		t.Errorf("got %q", got)
	}
}
