package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/dns"
	"github.com/guras256/warp-dns-manager/internal/platform"
)

const (
	resolverName     = "resolver"
	resolverBinary   = "nextdns"
	ResolverUnitName = "nextdns"

	resolverInstallScript = "curl -sSL https://nextdns.io/install | sh"

	// resolverProbeDomain answers through any working NextDNS profile.
	resolverProbeDomain = "test.nextdns.io"
)

// Resolver adapts the NextDNS CLI and its service unit to the Tool
// interface. Configuration is delegated to the CLI's own install command,
// which writes the daemon config and registers the unit.
type Resolver struct {
	Run   platform.Runner
	Probe *platform.Probe
	Paths platform.Paths
	Log   *slog.Logger

	// DNSAddr is where the daemon answers queries; probes go there
	// directly instead of through the system stub resolver.
	DNSAddr string
}

func (r *Resolver) Name() string { return resolverName }

func (r *Resolver) dnsAddr() string {
	if r.DNSAddr != "" {
		return r.DNSAddr
	}
	return "127.0.0.1:53"
}

// Detect reports how far the resolver setup has progressed.
func (r *Resolver) Detect(ctx context.Context) (Status, error) {
	if !r.Probe.HasCommand(resolverBinary) {
		return StatusNotInstalled, nil
	}
	if fileExists(r.Paths.ResolverConf) {
		return StatusConfigured, nil
	}
	return StatusInstalled, nil
}

// Install runs the vendor's installer script.
func (r *Resolver) Install(ctx context.Context) error {
	r.Log.Info("installing resolver CLI")
	if _, err := r.Run.Run(ctx, "sh", "-c", resolverInstallScript); err != nil {
		return fmt.Errorf("run resolver installer: %w", err)
	}
	if !r.Probe.HasCommand(resolverBinary) {
		return fmt.Errorf("resolver binary still missing after install")
	}
	return nil
}

// Configure points the daemon at the configured profile. The CLI's install
// command rewrites its config in place, so a second call with identical
// input is a no-op beyond the rewrite.
func (r *Resolver) Configure(ctx context.Context, cfg *config.Config) error {
	profile := cfg.Resolver.ProfileID
	if profile == "" {
		return fmt.Errorf("resolver profile id is empty")
	}

	args := []string{"install", "-config", profile}
	if extra := strings.Fields(cfg.Resolver.Arguments); len(extra) > 0 {
		args = append(args, extra...)
	}
	if _, err := r.Run.Run(ctx, resolverBinary, args...); err != nil {
		return fmt.Errorf("configure resolver profile %s: %w", profile, err)
	}
	r.Log.Info("resolver configured", "profile", profile)
	return nil
}

// Verify asks the daemon to resolve the vendor's test name directly on its
// listen address, plus the CLI's own status report for the detail.
func (r *Resolver) Verify(ctx context.Context) (bool, string) {
	ok, detail := dns.NewResolver(r.dnsAddr()).Probe(ctx, resolverProbeDomain)

	if res, err := r.Run.Run(ctx, resolverBinary, "status"); err == nil && res.Stdout != "" {
		detail = fmt.Sprintf("%s; cli: %s", detail, strings.TrimSpace(res.Stdout))
	}
	return ok, detail
}

// Logs returns the daemon's most recent log lines via the CLI.
func (r *Resolver) Logs(ctx context.Context, lines int) (string, error) {
	if lines <= 0 {
		lines = 50
	}
	res, err := r.Run.Run(ctx, resolverBinary, "log", "-n", strconv.Itoa(lines))
	if err != nil {
		return "", fmt.Errorf("fetch resolver logs: %w", err)
	}
	return res.Stdout, nil
}
