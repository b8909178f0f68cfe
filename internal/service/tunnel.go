package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/platform"
)

const (
	tunnelName     = "tunnel"
	tunnelBinary   = "wgcf"
	TunnelUnitName = "wg-quick@wgcf"

	tunnelReleaseURL = "https://github.com/ViRb3/wgcf/releases/latest/download/wgcf_%s"
)

// archNames maps uname -m output to the tunnel tool's release artifact names.
var archNames = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
	"armv7l":  "armv7",
}

// Tunnel adapts the wgcf registration tool and its wg-quick unit to the
// Tool interface. The tool's own files (account, generated profile) live
// under the manager's config dir; the installed profile goes where wg-quick
// expects it.
type Tunnel struct {
	Run   platform.Runner
	Probe *platform.Probe
	Paths platform.Paths
	Log   *slog.Logger
}

func (t *Tunnel) Name() string { return tunnelName }

// Detect reports how far the tunnel setup has progressed, judged purely from
// what exists on disk.
func (t *Tunnel) Detect(ctx context.Context) (Status, error) {
	if !t.Probe.HasCommand(tunnelBinary) {
		return StatusNotInstalled, nil
	}
	if fileExists(t.Paths.WireGuardConfig()) {
		return StatusConfigured, nil
	}
	return StatusInstalled, nil
}

// Install downloads the tunnel tool binary for the host architecture.
func (t *Tunnel) Install(ctx context.Context) error {
	res, err := t.Run.Run(ctx, "uname", "-m")
	if err != nil {
		return fmt.Errorf("detect architecture: %w", err)
	}
	arch, ok := archNames[strings.TrimSpace(res.Stdout)]
	if !ok {
		arch = "amd64"
	}

	url := fmt.Sprintf(tunnelReleaseURL, arch)
	t.Log.Info("downloading tunnel tool", "url", url)
	if _, err := t.Run.Run(ctx, "curl", "-fsSL", "-o", platform.TunnelBinaryPath, url); err != nil {
		return fmt.Errorf("download tunnel tool: %w", err)
	}
	if err := os.Chmod(platform.TunnelBinaryPath, 0o755); err != nil {
		return fmt.Errorf("mark tunnel tool executable: %w", err)
	}
	return nil
}

// Configure registers a WARP account if needed, generates the WireGuard
// profile, points its DNS at the local resolver and installs it for the
// wg-quick unit. Safe to call twice with identical input.
func (t *Tunnel) Configure(ctx context.Context, cfg *config.Config) error {
	account := t.Paths.AccountFile()
	profile := t.Paths.ProfileFile()

	if !fileExists(account) {
		t.Log.Info("registering WARP account")
		if _, err := t.Run.Run(ctx, tunnelBinary, "register", "--accept-tos", "--config", account); err != nil {
			return fmt.Errorf("register account: %w", err)
		}
	}
	if cfg.Tunnel.License != "" {
		if _, err := t.Run.Run(ctx, tunnelBinary, "update", "--config", account, "--license-key", cfg.Tunnel.License); err != nil {
			return fmt.Errorf("apply license: %w", err)
		}
	}

	if _, err := t.Run.Run(ctx, tunnelBinary, "generate", "--config", account, "--profile", profile); err != nil {
		return fmt.Errorf("generate profile: %w", err)
	}

	dns := cfg.Tunnel.DNS
	if dns == "" {
		dns = "127.0.0.1"
	}
	if err := rewriteProfileDNS(profile, dns); err != nil {
		return fmt.Errorf("rewrite profile dns: %w", err)
	}

	return t.installProfile(profile)
}

// installProfile copies the generated profile into the WireGuard directory
// with tight permissions, skipping the write when nothing changed.
func (t *Tunnel) installProfile(profile string) error {
	data, err := os.ReadFile(profile)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	dest := t.Paths.WireGuardConfig()
	if existing, err := os.ReadFile(dest); err == nil && string(existing) == string(data) {
		return nil
	}
	if err := os.MkdirAll(t.Paths.WireGuardDir, 0o755); err != nil {
		return fmt.Errorf("create wireguard dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return fmt.Errorf("install profile: %w", err)
	}
	t.Log.Info("tunnel profile installed", "path", dest)
	return nil
}

// Verify runs the tunnel tool's trace request and looks for an active WARP
// marker in the response.
func (t *Tunnel) Verify(ctx context.Context) (bool, string) {
	res, err := t.Run.Run(ctx, tunnelBinary, "trace")
	if err != nil {
		return false, fmt.Sprintf("trace failed: %v", err)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "warp=on" || line == "warp=plus" {
			return true, line
		}
	}
	return false, "trace reports warp=off"
}

// rewriteProfileDNS comments out the vendor resolvers in a generated profile
// and inserts the local resolver instead, so tunnel traffic stays filtered.
func rewriteProfileDNS(path, server string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines)+1)
	inserted := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "DNS =") || strings.HasPrefix(trimmed, "DNS=") {
			if strings.Contains(trimmed, server) {
				inserted = true
				out = append(out, line)
				continue
			}
			out = append(out, "#"+line)
			if !inserted {
				out = append(out, "DNS = "+server)
				inserted = true
			}
			continue
		}
		out = append(out, line)
	}
	return os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o600)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
