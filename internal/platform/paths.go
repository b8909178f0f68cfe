package platform

import "path/filepath"

// Defaults for on-disk locations. Everything under the config dir moves with
// the WARPDNS_CONFIG_DIR override; the system paths are where the external
// tools expect their files.
const (
	DefaultConfigDir = "/etc/warpdns"

	DefaultWireGuardDir = "/etc/wireguard"
	DefaultResolverConf = "/etc/nextdns.conf"

	TunnelBinaryPath = "/usr/local/bin/wgcf"
)

// Paths resolves every file location used by the manager from a small set of
// base directories, so tests and the config-dir override relocate the whole
// tree at once instead of patching scattered constants.
type Paths struct {
	ConfigDir    string
	WireGuardDir string
	ResolverConf string
}

// NewPaths fills in defaults for any base directory left empty.
func NewPaths(configDir string) Paths {
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	return Paths{
		ConfigDir:    configDir,
		WireGuardDir: DefaultWireGuardDir,
		ResolverConf: DefaultResolverConf,
	}
}

// ConfigFile is the persisted desired-state document.
func (p Paths) ConfigFile() string { return filepath.Join(p.ConfigDir, "config.yaml") }

// BackupDir holds the timestamped configuration snapshots.
func (p Paths) BackupDir() string { return filepath.Join(p.ConfigDir, "backups") }

// AccountFile is the tunnel tool's registration state.
func (p Paths) AccountFile() string { return filepath.Join(p.ConfigDir, "wgcf-account.toml") }

// ProfileFile is the generated WireGuard profile before installation.
func (p Paths) ProfileFile() string { return filepath.Join(p.ConfigDir, "wgcf-profile.conf") }

// WireGuardConfig is the installed tunnel profile the wg-quick unit loads.
func (p Paths) WireGuardConfig() string { return filepath.Join(p.WireGuardDir, "wgcf.conf") }
