// Package status aggregates per-service state and host-level connectivity
// probes into point-in-time snapshots, one-shot or on an interval.
package status

import (
	"time"

	"github.com/guras256/warp-dns-manager/internal/service"
)

// Snapshot is a consistent point-in-time view of both services and the
// surrounding host. Probe failures degrade individual fields; they never
// prevent a snapshot from being produced.
type Snapshot struct {
	CapturedAt time.Time `yaml:"captured_at"`

	Tunnel   service.State `yaml:"tunnel"`
	Resolver service.State `yaml:"resolver"`

	TunnelOK       bool   `yaml:"tunnel_ok"`
	TunnelDetail   string `yaml:"tunnel_detail,omitempty"`
	ResolverOK     bool   `yaml:"resolver_ok"`
	ResolverDetail string `yaml:"resolver_detail,omitempty"`

	NetworkReachable bool     `yaml:"network_reachable"`
	WarpActive       bool     `yaml:"warp_active"`
	DNSServers       []string `yaml:"dns_servers,omitempty"`
}

// Healthy reports whether everything a user cares about is up: both services
// running and passing their probes, with outbound connectivity intact.
func (s *Snapshot) Healthy() bool {
	return s.Tunnel.Status == service.StatusRunning &&
		s.Resolver.Status == service.StatusRunning &&
		s.TunnelOK && s.ResolverOK && s.NetworkReachable
}
