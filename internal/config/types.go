package config

import "time"

// Config is the persisted desired state: which services should run and how
// they are configured. It is mutated only by the setup flow; in-flight
// operations work on a copy taken at operation start.
type Config struct {
	Version int `yaml:"version"`

	Tunnel   TunnelConfig   `yaml:"tunnel"`
	Resolver ResolverConfig `yaml:"resolver"`
	Monitor  MonitorConfig  `yaml:"monitor"`

	Auto          bool `yaml:"auto"`
	SetupFinished bool `yaml:"setup_finished"`
}

// TunnelConfig holds WARP tunnel settings.
type TunnelConfig struct {
	Enabled bool `yaml:"enabled"`
	// License is an optional WARP+ license key applied after registration.
	License string `yaml:"license"`
	// DNS is the resolver address written into the generated WireGuard
	// profile in place of the vendor's resolvers. Default points at the
	// local DNS-filtering daemon so tunnel traffic stays filtered.
	DNS string `yaml:"dns"`
}

// ResolverConfig holds NextDNS settings.
type ResolverConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProfileID string `yaml:"profile_id"`
	// Arguments are extra flags passed verbatim to the resolver's
	// install command (e.g. "-report-client-info").
	Arguments string `yaml:"arguments"`
}

// MonitorConfig holds live-monitoring and logging settings.
type MonitorConfig struct {
	Interval string `yaml:"interval"`
	LogLevel string `yaml:"log_level"`
}

// IntervalDuration parses the monitor refresh interval as a time.Duration.
func (m MonitorConfig) IntervalDuration() time.Duration {
	dur, err := time.ParseDuration(m.Interval)
	if err != nil || dur <= 0 {
		return 5 * time.Second
	}
	return dur
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Version: 1,
		Tunnel: TunnelConfig{
			Enabled: true,
			DNS:     "127.0.0.1",
		},
		Resolver: ResolverConfig{
			Enabled:   true,
			ProfileID: "default",
		},
		Monitor: MonitorConfig{
			Interval: "5s",
			LogLevel: "info",
		},
	}
}
