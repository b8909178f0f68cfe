package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/guras256/warp-dns-manager/internal/config"
)

func tempStore(t *testing.T) *config.Store {
	t.Helper()
	return config.NewStore(filepath.Join(t.TempDir(), "config.yaml"))
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	s := tempStore(t)

	cfg, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Tunnel.Enabled || !cfg.Resolver.Enabled {
		t.Fatalf("expected both services enabled by default: %+v", cfg)
	}
	if cfg.Tunnel.DNS != "127.0.0.1" {
		t.Fatalf("unexpected default tunnel DNS: %q", cfg.Tunnel.DNS)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)

	cfg, _ := s.Load()
	cfg.Tunnel.License = "abc-123"
	cfg.Resolver.ProfileID = "profile42"
	cfg.SetupFinished = true

	if err := s.Save(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Tunnel.License != "abc-123" || got.Resolver.ProfileID != "profile42" || !got.SetupFinished {
		t.Fatalf("round trip lost fields: %+v", got)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	s := tempStore(t)
	cfg, _ := s.Load()

	if err := s.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after save")
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	s := tempStore(t)
	os.MkdirAll(filepath.Dir(s.Path()), 0o755)
	os.WriteFile(s.Path(), []byte("tunnel: [not a mapping"), 0o644)

	if _, err := s.Load(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10s", "10s"},
		{"2m", "2m0s"},
		{"", "5s"},
		{"garbage", "5s"},
		{"-3s", "5s"},
	}
	for _, tt := range tests {
		m := config.MonitorConfig{Interval: tt.in}
		if got := m.IntervalDuration().String(); got != tt.want {
			t.Errorf("IntervalDuration(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("WARPDNS_CONFIG_DIR", "/tmp/wdtest")
	t.Setenv("WARPDNS_AUTO", "true")

	env, err := config.LoadEnv()
	if err != nil {
		t.Fatal(err)
	}
	if env.ConfigDir != "/tmp/wdtest" || !env.Auto {
		t.Fatalf("unexpected env: %+v", env)
	}
}
